package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/spec-kit/worklist-service/internal/domain"
)

// Notification queue backends.
const (
	QueueMemory = "memory"
	QueueRedis  = "redis"
)

// DefaultCrewMembers is the roster used when neither CREW_ROSTER_FILE nor
// CREW_MEMBERS is set.
var DefaultCrewMembers = []string{"DP", "AL", "Kaitlyn", "Mark", "Art", "D2", "Zach", "Maverick", "Rhyan"}

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Workflow     WorkflowConfig
	Notification NotificationConfig
	Storage      StorageConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values. An empty DSN selects the
// in-memory store.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	QueueKey string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	CrewPassword          string
	AdminUsername         string
	AdminPassword         string
	BcryptCost            int
}

// WorkflowConfig holds the work-item policy knobs and the crew roster.
type WorkflowConfig struct {
	PhotoMaxCount           int
	AutoAssignSubmitter     bool
	DraftNumberCacheSeconds int
	Crew                    []domain.CrewMember
	Catalogue               Catalogue
}

// NotificationConfig controls assignment SMS delivery.
type NotificationConfig struct {
	Enabled          bool
	SMSURLTemplate   string
	CrewLoginURL     string
	Queue            string
	Workers          int
	MaxAttempts      int
	TimeoutSeconds   int
	RetryBackoffMsec int
}

// StorageConfig locates uploaded photos.
type StorageConfig struct {
	UploadFolder     string
	MaxContentLength int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	crew, err := LoadRoster(os.Getenv("CREW_ROSTER_FILE"), getEnvAsList("CREW_MEMBERS", DefaultCrewMembers), os.Getenv)
	if err != nil {
		return nil, err
	}

	catalogue, err := LoadCatalogue(os.Getenv("ITEM_CATALOGUE_FILE"))
	if err != nil {
		return nil, err
	}

	queue := strings.ToLower(getEnv("NOTIFY_QUEUE", QueueMemory))
	if queue != QueueMemory && queue != QueueRedis {
		return nil, fmt.Errorf("invalid NOTIFY_QUEUE %q: want %s or %s", queue, QueueMemory, QueueRedis)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "worklist-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			QueueKey: getEnv("REDIS_NOTIFY_QUEUE_KEY", "worklist:notifications"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 480),
			CrewPassword:          getEnv("CREW_PASSWORD", "crew350"),
			AdminUsername:         getEnv("ADMIN_USERNAME", "admin"),
			AdminPassword:         getEnv("ADMIN_PASSWORD", "admin350"),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Workflow: WorkflowConfig{
			PhotoMaxCount:           getEnvAsInt("PHOTO_MAX_COUNT", 6),
			AutoAssignSubmitter:     getEnvAsBool("AUTO_ASSIGN_SUBMITTER", false),
			DraftNumberCacheSeconds: getEnvAsInt("DRAFT_NUMBER_CACHE_SECONDS", 60),
			Crew:                    crew,
			Catalogue:               catalogue,
		},
		Notification: NotificationConfig{
			Enabled:          getEnvAsBool("ENABLE_NOTIFICATIONS", false),
			SMSURLTemplate:   os.Getenv("NOTIFY_SMS_URL_TEMPLATE"),
			CrewLoginURL:     getEnv("CREW_LOGIN_URL", "http://localhost:8080/crew/login"),
			Queue:            queue,
			Workers:          getEnvAsInt("NOTIFY_WORKERS", 2),
			MaxAttempts:      getEnvAsInt("NOTIFY_MAX_ATTEMPTS", 3),
			TimeoutSeconds:   getEnvAsInt("NOTIFY_TIMEOUT_SECONDS", 10),
			RetryBackoffMsec: getEnvAsInt("NOTIFY_RETRY_BACKOFF_MS", 500),
		},
		Storage: StorageConfig{
			UploadFolder:     getEnv("UPLOAD_FOLDER", "uploads"),
			MaxContentLength: getEnvAsInt("MAX_CONTENT_LENGTH", 16*1024*1024),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the lifetime of issued tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// DraftNumberCacheTTL returns how long a computed draft number is reused.
func (w WorkflowConfig) DraftNumberCacheTTL() time.Duration {
	return time.Duration(w.DraftNumberCacheSeconds) * time.Second
}

// CrewNames lists roster names in roster order.
func (w WorkflowConfig) CrewNames() []string {
	names := make([]string, len(w.Crew))
	for i, m := range w.Crew {
		names[i] = m.Name
	}
	return names
}

// Member looks up a roster entry by exact name.
func (w WorkflowConfig) Member(name string) (domain.CrewMember, bool) {
	for _, m := range w.Crew {
		if m.Name == name {
			return m, true
		}
	}
	return domain.CrewMember{}, false
}

// Timeout bounds a single delivery attempt.
func (n NotificationConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

// RetryBackoff is the base delay between delivery attempts.
func (n NotificationConfig) RetryBackoff() time.Duration {
	return time.Duration(n.RetryBackoffMsec) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
