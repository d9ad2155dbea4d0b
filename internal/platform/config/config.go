package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	sgrstrings "sgr/pkg/platform/strings"
)

// Session store backends.
const (
	SessionBackendMemory   = "memory"
	SessionBackendRedis    = "redis"
	SessionBackendPostgres = "postgres"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	LogLevel       string
	BackendURL     string
	BackendTimeout time.Duration
	ProfilePath    string
	ScreensFile    string
	MetricsToken   string
	OAuth          OAuthConfig
	Session        SessionConfig
	Redis          RedisConfig
	Postgres       PostgresConfig
	Kafka          KafkaConfig
	LoginThrottle  ThrottleConfig
}

// OAuthConfig holds the client credentials sent on the password grant.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	TokenPath    string
}

// SessionConfig controls the browser session cookie and its backing store.
type SessionConfig struct {
	Backend      string
	TTL          time.Duration
	CookieName   string
	CookieSecure bool
}

// RedisConfig holds go-redis connection settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig holds the session table's database DSN.
type PostgresConfig struct {
	DSN string
}

// KafkaConfig enables the Kafka audit publisher when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// ThrottleConfig limits credential posts per client IP. MaxAttempts 0 turns
// throttling off.
type ThrottleConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:           envOr("SGR_ADDR", ":8080"),
		LogLevel:       envOr("SGR_LOG_LEVEL", "info"),
		BackendURL:     strings.TrimRight(envOr("SGR_BACKEND_URL", "http://localhost:8080/sgr/api"), "/"),
		BackendTimeout: envDuration("SGR_BACKEND_TIMEOUT", 15*time.Second),
		ProfilePath:    envOr("SGR_PROFILE_PATH", "/usuarios/perfil"),
		ScreensFile:    os.Getenv("SGR_SCREENS_FILE"),
		MetricsToken:   os.Getenv("SGR_METRICS_TOKEN"),
		OAuth: OAuthConfig{
			// Development defaults; override in production.
			ClientID:     envOr("SGR_CLIENT_ID", "sgr"),
			ClientSecret: envOr("SGR_CLIENT_SECRET", "sgr-dev-secret"),
			TokenPath:    envOr("SGR_TOKEN_PATH", "/oauth/token"),
		},
		Session: SessionConfig{
			Backend:      envOr("SGR_SESSION_BACKEND", SessionBackendMemory),
			TTL:          envDuration("SGR_SESSION_TTL", 12*time.Hour),
			CookieName:   envOr("SGR_COOKIE_NAME", "sgr_session"),
			CookieSecure: os.Getenv("SGR_COOKIE_SECURE") == "true",
		},
		Redis: RedisConfig{
			URL:          os.Getenv("SGR_REDIS_URL"),
			PoolSize:     envInt("SGR_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("SGR_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("SGR_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("SGR_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("SGR_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("SGR_POSTGRES_DSN"),
		},
		Kafka: KafkaConfig{
			Brokers: sgrstrings.SplitList(os.Getenv("SGR_KAFKA_BROKERS")),
			Topic:   envOr("SGR_KAFKA_TOPIC", "sgr.session-events"),
		},
		LoginThrottle: ThrottleConfig{
			MaxAttempts: envInt("SGR_LOGIN_MAX_ATTEMPTS", 10),
			Window:      envDuration("SGR_LOGIN_WINDOW", time.Minute),
		},
	}
}

// Validate reports settings that would only fail later at first use.
func (s Server) Validate() error {
	var errs []error
	if u, err := url.Parse(s.BackendURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("SGR_BACKEND_URL %q is not an absolute URL", s.BackendURL))
	}
	switch s.Session.Backend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if s.Redis.URL == "" {
			errs = append(errs, errors.New("SGR_REDIS_URL is required for the redis session backend"))
		}
	case SessionBackendPostgres:
		if s.Postgres.DSN == "" {
			errs = append(errs, errors.New("SGR_POSTGRES_DSN is required for the postgres session backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SGR_SESSION_BACKEND %q", s.Session.Backend))
	}
	if s.Session.CookieName == "" {
		errs = append(errs, errors.New("SGR_COOKIE_NAME must not be empty"))
	}
	if s.Session.TTL <= 0 {
		errs = append(errs, errors.New("SGR_SESSION_TTL must be positive"))
	}
	if s.LoginThrottle.MaxAttempts < 0 {
		errs = append(errs, errors.New("SGR_LOGIN_MAX_ATTEMPTS must not be negative"))
	}
	if s.LoginThrottle.MaxAttempts > 0 && s.LoginThrottle.Window <= 0 {
		errs = append(errs, errors.New("SGR_LOGIN_WINDOW must be positive"))
	}
	return errors.Join(errs...)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
