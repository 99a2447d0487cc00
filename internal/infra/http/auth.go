package http

import (
	"context"
	"net/http"

	"mentora/internal/domain"

	"github.com/gin-gonic/gin"
)

const principalContextKey = "principal"

type principalCtxKey struct{}

// PrincipalFromContext returns the principal attached by authenticate or
// optionalAuth, if any.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(domain.Principal)
	return p, ok
}

func (s *Server) credential(c *gin.Context) domain.Credential {
	return s.credentials.Extract(c.GetHeader(domain.HeaderAuthorization), c.GetHeader(domain.HeaderLegacyUserID))
}

func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := s.identity.Resolve(c.Request.Context(), s.credential(c))
		if err != nil {
			s.logger.Info("request rejected", "path", c.FullPath(), "err", err)
			writeError(c, err)
			c.Abort()
			return
		}
		attachPrincipal(c, principal)
		c.Next()
	}
}

// optionalAuth never rejects. A missing or unverifiable credential leaves the
// request anonymous.
func (s *Server) optionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		cred := s.credential(c)
		if _, none := cred.(domain.NoCredential); none {
			c.Next()
			return
		}
		principal, err := s.identity.ResolveOptional(c.Request.Context(), cred)
		if err != nil {
			s.logger.Debug("optional auth ignored credential", "path", c.FullPath(), "err", err)
			c.Next()
			return
		}
		attachPrincipal(c, principal)
		c.Next()
	}
}

func (s *Server) requireGoogleIntegration() gin.HandlerFunc {
	return func(c *gin.Context) {
		var principal *domain.Principal
		if p, ok := getPrincipal(c); ok {
			principal = &p
		}
		if err := s.gate.Require(c.Request.Context(), principal); err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

func attachPrincipal(c *gin.Context, principal domain.Principal) {
	c.Set(principalContextKey, principal)
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), principalCtxKey{}, principal))
}

func getPrincipal(c *gin.Context) (domain.Principal, bool) {
	value, ok := c.Get(principalContextKey)
	if !ok {
		return domain.Principal{}, false
	}
	principal, ok := value.(domain.Principal)
	return principal, ok
}

// mustPrincipal is for handlers mounted behind authenticate.
func mustPrincipal(c *gin.Context) (domain.Principal, bool) {
	principal, ok := getPrincipal(c)
	if !ok {
		writeErrorCode(c, http.StatusUnauthorized, "AUTHENTICATION_REQUIRED", domain.ErrAuthenticationRequired.Error())
		return domain.Principal{}, false
	}
	return principal, true
}
