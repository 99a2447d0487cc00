package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mentora/internal/domain"
	"mentora/internal/usecase"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type sessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	Tier  string `json:"tier"`
}

type sessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *sessionUser `json:"user,omitempty"`
}

type createEventRequest struct {
	Summary     string    `json:"summary" binding:"required"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Start       time.Time `json:"start" binding:"required"`
	End         time.Time `json:"end" binding:"required"`
	AllDay      bool      `json:"all_day"`
}

type createTaskRequest struct {
	Title string     `json:"title" binding:"required"`
	Notes string     `json:"notes"`
	Due   *time.Time `json:"due"`
}

type dailySummaryRequest struct {
	Day      string `json:"day"`
	Timezone string `json:"timezone"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"env":      s.cfg.AppEnv,
		"database": s.store.Enabled(),
	})
}

func (s *Server) handleSession(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		c.JSON(http.StatusOK, sessionResponse{})
		return
	}
	c.JSON(http.StatusOK, sessionResponse{
		Authenticated: true,
		User: &sessionUser{
			ID:    principal.Subject,
			Email: principal.Email,
			Role:  principal.Role,
			Tier:  string(principal.Tier),
		},
	})
}

func (s *Server) handleGoogleAuthURL(c *gin.Context) {
	if !s.requireGoogleConfigured(c) {
		return
	}
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	authURL, err := s.connect.AuthURL(c.Request.Context(), principal)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": authURL})
}

// handleGoogleCallback is reached by the browser redirect from Google, so it
// carries no credential. The state value identifies the user.
func (s *Server) handleGoogleCallback(c *gin.Context) {
	if !s.requireGoogleConfigured(c) {
		return
	}
	if denied := c.Query("error"); denied != "" {
		s.logger.Info("google consent denied", "reason", denied)
		s.finishCallback(c, "", errors.New(denied))
		return
	}
	userID, err := s.connect.Complete(c.Request.Context(), c.Query("state"), c.Query("code"))
	s.finishCallback(c, userID, err)
}

func (s *Server) finishCallback(c *gin.Context, userID string, err error) {
	if s.cfg.FrontendURL != "" {
		q := url.Values{}
		if err != nil {
			q.Set("google", "error")
		} else {
			q.Set("google", "connected")
		}
		c.Redirect(http.StatusFound, s.cfg.FrontendURL+"/settings?"+q.Encode())
		return
	}
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidState) && !errors.Is(err, domain.ErrInvalidArgument) && !errors.Is(err, domain.ErrUpstreamUnavailable) {
			writeErrorCode(c, http.StatusBadRequest, "OAUTH_DENIED", "google consent was not granted")
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "user_id": userID})
}

func (s *Server) handleGoogleStatus(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	if s.connect == nil {
		c.JSON(http.StatusOK, usecase.IntegrationStatus{})
		return
	}
	status, err := s.connect.Status(c.Request.Context(), principal)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleGoogleDisconnect(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	if s.connect != nil {
		if err := s.connect.Disconnect(c.Request.Context(), principal); err != nil {
			writeError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"connected": false})
}

func (s *Server) handleListEvents(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	from, ok := queryTime(c, "start", time.Now().UTC())
	if !ok {
		return
	}
	to, ok := queryTime(c, "end", time.Time{})
	if !ok {
		return
	}
	events, err := s.planner.ListEvents(c.Request.Context(), principal, from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *Server) handleCreateEvent(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "summary, start and end are required")
		return
	}
	created, err := s.planner.CreateEvent(c.Request.Context(), principal, domain.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Location:    req.Location,
		Start:       req.Start,
		End:         req.End,
		AllDay:      req.AllDay,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleListTasks(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	includeCompleted := false
	if raw := c.Query("include_completed"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "include_completed must be a boolean")
			return
		}
		includeCompleted = parsed
	}
	tasks, err := s.planner.ListTasks(c.Request.Context(), principal, includeCompleted)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (s *Server) handleCreateTask(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "title is required")
		return
	}
	created, err := s.planner.CreateTask(c.Request.Context(), principal, domain.Task{
		Title: req.Title,
		Notes: req.Notes,
		Due:   req.Due,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleDailySummary(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	if s.summaries == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "SUMMARIES_NOT_CONFIGURED", "summaries are not configured")
		return
	}
	var req dailySummaryRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
			return
		}
	}
	loc := time.UTC
	if tz := strings.TrimSpace(req.Timezone); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "unknown timezone")
			return
		}
		loc = parsed
	}
	summary, err := s.summaries.Daily(c.Request.Context(), principal, strings.TrimSpace(req.Day), loc)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleNoRoute(c *gin.Context) {
	writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
}

func (s *Server) requireGoogleConfigured(c *gin.Context) bool {
	if s.googleEnabled && s.connect != nil {
		return true
	}
	writeErrorCode(c, http.StatusServiceUnavailable, "GOOGLE_NOT_CONFIGURED", "google integration is not configured")
	return false
}

func queryTime(c *gin.Context, key string, def time.Time) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, true
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", key+" must be an RFC3339 timestamp")
		return time.Time{}, false
	}
	return parsed, true
}

// writeError maps domain errors to the public envelope. Only codes and fixed
// messages leave the process; causes stay in the log.
func writeError(c *gin.Context, err error) {
	if authErr, ok := domain.IsAuthError(err); ok {
		writeErrorCode(c, authStatus(authErr), authErr.Code, authMessage(authErr))
		return
	}
	status, code, message := http.StatusInternalServerError, "INTERNAL", "internal error"
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		status, code, message = http.StatusBadRequest, "INVALID_ARGUMENT", err.Error()
	case errors.Is(err, domain.ErrInvalidState):
		status, code, message = http.StatusBadRequest, "INVALID_STATE", domain.ErrInvalidState.Error()
	case errors.Is(err, domain.ErrAuthenticationRequired):
		status, code, message = http.StatusUnauthorized, usecase.CodeAuthRequired, domain.ErrAuthenticationRequired.Error()
	case errors.Is(err, domain.ErrIntegrationNotConnected):
		status, code, message = http.StatusForbidden, usecase.CodeIntegrationMissing, domain.ErrIntegrationNotConnected.Error()
	case errors.Is(err, domain.ErrForbidden):
		status, code, message = http.StatusForbidden, "FORBIDDEN", domain.ErrForbidden.Error()
	case errors.Is(err, domain.ErrNotFound):
		status, code, message = http.StatusNotFound, "NOT_FOUND", domain.ErrNotFound.Error()
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		status, code, message = http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "upstream service unavailable"
	}
	writeErrorCode(c, status, code, message)
}

func authStatus(err *domain.AuthError) int {
	switch {
	case errors.Is(err, domain.ErrMalformedCredential):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrIntegrationNotConnected), errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusUnauthorized
	}
}

func authMessage(err *domain.AuthError) string {
	for _, sentinel := range []error{
		domain.ErrMalformedCredential,
		domain.ErrIntegrationNotConnected,
		domain.ErrForbidden,
		domain.ErrAuthenticationRequired,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return domain.ErrInvalidToken.Error()
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
