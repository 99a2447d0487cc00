package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"mentora/internal/config"
	"mentora/internal/domain"
	"mentora/internal/infra/auth/jwtsecret"
	"mentora/internal/infra/auth/oidc"
	"mentora/internal/infra/auth/supabase"
	"mentora/internal/infra/db"
	"mentora/internal/infra/google"
	"mentora/internal/infra/groq"
	"mentora/internal/infra/memstore"
	"mentora/internal/infra/oauthstate"
	"mentora/internal/infra/ratelimit"
	"mentora/internal/logger"
	"mentora/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const redisPingTimeout = 2 * time.Second

type Server struct {
	cfg    config.Config
	store  *db.Store
	r      *gin.Engine
	logger *slog.Logger
	redis  redis.UniversalClient

	origins     *usecase.OriginAuthorizer
	credentials domain.CredentialExtractor
	identity    *usecase.IdentityResolver
	gate        *usecase.IntegrationGate

	googleEnabled bool
	connect       *usecase.GoogleConnect
	planner       *usecase.Planner
	summaries     *usecase.Summaries

	rateLimiter         domain.QuotaLimiter
	quota               domain.Quota
	rateLimitFailClosed bool
}

// ServerDeps lets callers, mostly tests, supply collaborators directly.
// Nil fields disable the features that need them.
type ServerDeps struct {
	Logger       *slog.Logger
	Verifier     domain.TokenVerifier
	Integrations domain.IntegrationStore
	OAuthStates  domain.OAuthStateStore
	OAuth        usecase.OAuthProvider
	Clients      usecase.PlannerClientFactory
	Summarizer   usecase.Summarizer
	RateLimiter  domain.QuotaLimiter
	Now          func() time.Time
}

// NewServer wires production collaborators from cfg. Redis backs rate
// limiting and OAuth state when reachable; otherwise both stay in memory.
func NewServer(ctx context.Context, cfg config.Config, store *db.Store, log *slog.Logger) (*Server, error) {
	log = logger.OrDefault(log)
	deps := ServerDeps{Logger: log}

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init %s verifier: %w", cfg.AuthMode, err)
	}
	deps.Verifier = verifier

	if store.Enabled() {
		deps.Integrations = store.Integrations
	} else {
		deps.Integrations = memstore.NewIntegrationStore(nil)
	}

	rdb := connectRedis(ctx, cfg, log)
	if rdb != nil {
		deps.OAuthStates, _ = oauthstate.NewRedisStore(rdb)
		if cfg.RateLimitRequests > 0 {
			deps.RateLimiter, _ = ratelimit.NewRedisLimiter(rdb, nil)
		}
	}
	if deps.OAuthStates == nil {
		deps.OAuthStates = oauthstate.NewMemoryStore(oauthstate.MemoryStoreConfig{})
	}
	if deps.RateLimiter == nil && cfg.RateLimitRequests > 0 {
		deps.RateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{MaxKeys: cfg.RateLimitMaxKeys})
	}

	if cfg.GoogleEnabled() {
		oauth, err := google.NewOAuth(cfg)
		if err != nil {
			return nil, err
		}
		deps.OAuth = oauth
		deps.Clients = google.NewProvider(oauth)
	} else {
		log.Warn("google oauth not configured; calendar and task routes will report not connected")
	}
	if cfg.GroqEnabled() {
		summarizer, err := groq.NewSummarizer(cfg)
		if err != nil {
			return nil, err
		}
		deps.Summarizer = summarizer
	}

	s := NewServerWithDeps(cfg, deps)
	s.store = store
	s.redis = rdb
	return s, nil
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	log := logger.OrDefault(deps.Logger)
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:    cfg,
		r:      r,
		logger: log,
		origins: usecase.NewOriginAuthorizer(usecase.OriginPolicy{
			AllowedOrigins: cfg.AllowedOrigins,
			PreviewDomain:  cfg.PreviewDomain,
			ProjectToken:   cfg.ProjectToken,
		}, log),
		credentials: domain.NewCredentialExtractor(cfg.IsProduction()),
		identity: usecase.NewIdentityResolver(usecase.IdentityResolverConfig{
			Verifier:      deps.Verifier,
			VerifyTimeout: cfg.VerifyTimeout(),
			Logger:        log,
		}),
		gate:          usecase.NewIntegrationGate(deps.Integrations, log),
		googleEnabled: deps.OAuth != nil && deps.Clients != nil,
	}
	if deps.Integrations != nil {
		s.connect = &usecase.GoogleConnect{
			OAuth:  deps.OAuth,
			States: deps.OAuthStates,
			Store:  deps.Integrations,
			Now:    deps.Now,
			Logger: log,
		}
		s.planner = &usecase.Planner{
			Store:   deps.Integrations,
			Clients: deps.Clients,
			Logger:  log,
		}
		if deps.Summarizer != nil {
			s.summaries = &usecase.Summaries{
				Planner:    s.planner,
				Summarizer: deps.Summarizer,
				Now:        deps.Now,
				Logger:     log,
			}
		}
	}
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s
}

func newVerifier(ctx context.Context, cfg config.Config) (domain.TokenVerifier, error) {
	switch cfg.AuthMode {
	case config.AuthModeSupabase:
		return supabase.NewVerifier(cfg)
	case config.AuthModeJWT:
		return jwtsecret.NewVerifier(cfg)
	case config.AuthModeOIDC:
		return oidc.NewVerifier(ctx, cfg)
	default:
		return nil, errors.New("unsupported auth mode")
	}
}

func connectRedis(ctx context.Context, cfg config.Config, log *slog.Logger) redis.UniversalClient {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unreachable; using in-memory rate limit and oauth state", "addr", cfg.RedisAddr, "err", err)
		_ = client.Close()
		return nil
	}
	return client
}

func (s *Server) initRateLimit(limiter domain.QuotaLimiter) {
	s.rateLimiter = limiter
	s.quota = domain.Quota{Requests: s.cfg.RateLimitRequests, Window: s.cfg.RateLimitWindow()}
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
}

func (s *Server) routes() {
	s.r.Use(s.corsMiddleware(), s.requestLogger())

	s.r.GET("/health", s.handleHealth)
	s.r.GET("/healthz", s.handleHealth)

	api := s.r.Group("/api")
	{
		api.GET("/session", s.optionalAuth(), s.handleSession)

		api.GET("/auth/google/callback", s.handleGoogleCallback)
		googleAuth := api.Group("/auth/google", s.authenticate())
		googleAuth.GET("/url", s.handleGoogleAuthURL)
		googleAuth.GET("/status", s.handleGoogleStatus)
		googleAuth.POST("/disconnect", s.handleGoogleDisconnect)

		connected := api.Group("", s.authenticate(), s.requireGoogleIntegration())
		connected.GET("/calendar/events", s.handleListEvents)
		connected.POST("/calendar/events", s.handleCreateEvent)
		connected.GET("/tasks", s.handleListTasks)
		connected.POST("/tasks", s.handleCreateTask)
		connected.POST("/summaries/daily", s.rateLimit(routeDailySummary), s.handleDailySummary)
	}

	s.r.NoRoute(s.handleNoRoute)
}

func (s *Server) Handler() http.Handler {
	return s.r
}

// Run serves until ctx is cancelled and then drains in-flight requests for up
// to the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.HTTPAddr, "env", s.cfg.AppEnv, "auth_mode", s.cfg.AuthMode)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout())
	defer cancel()
	s.logger.Info("shutting down http server", "timeout", s.cfg.ShutdownTimeout())
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if principal, ok := getPrincipal(c); ok {
			attrs = append(attrs, "user_id", principal.Subject, "tier", principal.Tier)
		}
		s.logger.Debug("http request", attrs...)
	}
}
