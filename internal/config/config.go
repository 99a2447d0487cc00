package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/subosito/gotenv"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	AuthModeSupabase = "supabase"
	AuthModeJWT      = "jwt"
	AuthModeOIDC     = "oidc"
)

var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

type Config struct {
	HTTPAddr  string
	AppEnv    string
	LogLevel  string `validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat string `validate:"oneof=text json"`

	AllowedOrigins []string
	FrontendURL    string `validate:"omitempty,url"`
	PreviewDomain  string
	ProjectToken   string

	AuthMode            string `validate:"oneof=supabase jwt oidc"`
	SupabaseURL         string `validate:"required_if=AuthMode supabase,omitempty,url"`
	SupabaseAnonKey     string `validate:"required_if=AuthMode supabase"`
	SupabaseJWTSecret   string `validate:"required_if=AuthMode jwt"`
	JWTAudience         string
	OIDCIssuerURL       string `validate:"required_if=AuthMode oidc,omitempty,url"`
	OIDCAudience        string
	OIDCJWKSURL         string `validate:"omitempty,url"`
	OIDCClockSkewSecs   int
	VerifyTimeoutSecs   int `validate:"gte=1"`
	ShutdownTimeoutSecs int `validate:"gte=1"`

	PostgresDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string `validate:"omitempty,url"`

	GroqAPIKey            string
	GroqModel             string
	GroqBaseURL           string `validate:"omitempty,url"`
	GroqRequestsPerMinute int
}

// Load reads an optional dotenv file and then the process environment.
// Variables already present in the environment take precedence.
func Load(path string) (Config, error) {
	if path != "" {
		if err := gotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}
	return FromEnv(), nil
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	cfg := Config{
		HTTPAddr:               addr,
		AppEnv:                 strings.ToLower(envDefault("APP_ENV", EnvDevelopment)),
		LogLevel:               strings.ToLower(envDefault("LOG_LEVEL", "info")),
		LogFormat:              strings.ToLower(envDefault("LOG_FORMAT", "text")),
		AllowedOrigins:         envCSV("ALLOWED_ORIGINS"),
		FrontendURL:            strings.TrimRight(os.Getenv("FRONTEND_URL"), "/"),
		PreviewDomain:          envDefault("PREVIEW_DOMAIN", "vercel.app"),
		ProjectToken:           envDefault("PROJECT_TOKEN", "mentora"),
		AuthMode:               strings.ToLower(envDefault("AUTH_MODE", AuthModeSupabase)),
		SupabaseURL:            strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseAnonKey:        os.Getenv("SUPABASE_ANON_KEY"),
		SupabaseJWTSecret:      os.Getenv("SUPABASE_JWT_SECRET"),
		JWTAudience:            envDefault("JWT_AUDIENCE", "authenticated"),
		OIDCIssuerURL:          os.Getenv("OIDC_ISSUER_URL"),
		OIDCAudience:           os.Getenv("OIDC_AUDIENCE"),
		OIDCJWKSURL:            os.Getenv("OIDC_JWKS_URL"),
		OIDCClockSkewSecs:      envIntDefault("OIDC_CLOCK_SKEW_SECONDS", 60),
		VerifyTimeoutSecs:      envIntDefault("AUTH_VERIFY_TIMEOUT_SECONDS", 5),
		ShutdownTimeoutSecs:    envIntDefault("SHUTDOWN_TIMEOUT_SECONDS", 10),
		PostgresDSN:            os.Getenv("POSTGRES_DSN"),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                envIntDefault("REDIS_DB", 0),
		RateLimitRequests:      envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds: envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitFailClosed:    envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:       envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		GoogleClientID:         os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:     os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:      os.Getenv("GOOGLE_REDIRECT_URL"),
		GroqAPIKey:             os.Getenv("GROQ_API_KEY"),
		GroqModel:              envDefault("GROQ_MODEL", "llama-3.1-8b-instant"),
		GroqBaseURL:            envDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GroqRequestsPerMinute:  envIntDefault("GROQ_REQUESTS_PER_MINUTE", 30),
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = append([]string(nil), defaultAllowedOrigins...)
		if cfg.FrontendURL != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, cfg.FrontendURL)
		}
	}
	return cfg
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

func (c Config) GroqEnabled() bool {
	return c.GroqAPIKey != ""
}

func (c Config) RateLimitWindow() time.Duration {
	if c.RateLimitWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func (c Config) VerifyTimeout() time.Duration {
	if c.VerifyTimeoutSecs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.VerifyTimeoutSecs) * time.Second
}

func (c Config) ShutdownTimeout() time.Duration {
	if c.ShutdownTimeoutSecs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ShutdownTimeoutSecs) * time.Second
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}

func envCSV(key string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimRight(strings.TrimSpace(p), "/")
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
