package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the orchestrator process.
// All values come from env (or an env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App       AppConfig
	LiveKit   LiveKitConfig
	Webhook   WebhookConfig
	Room      RoomConfig
	Blocklist BlocklistConfig
	CallLog   CallLogConfig
	DB        DBConfig
	Redis     RedisConfig
}

type AppConfig struct {
	Env      string
	Port     int
	LogLevel string
}

// LiveKitConfig points at the room/agent platform.
// URL may be given as ws(s):// (what clients use) or http(s)://.
type LiveKitConfig struct {
	URL       string
	APIKey    string
	APISecret string

	// AgentName is the responder identity dispatched into every room.
	AgentName string

	// RequestTimeout bounds a single platform round trip.
	RequestTimeout time.Duration
}

type WebhookConfig struct {
	Path string

	// Secret enables HMAC-SHA256 verification of inbound bodies when set.
	Secret string

	// CallTimeout bounds the whole provisioning of one call.
	CallTimeout time.Duration

	// RollbackTimeout bounds the compensating room delete, which runs
	// detached from the (possibly expired) call deadline.
	RollbackTimeout time.Duration
}

type RoomConfig struct {
	EmptyTimeout time.Duration
}

// MaxRoomEmptyTimeout is the largest value the platform's uint32 seconds
// field can carry.
const MaxRoomEmptyTimeout = math.MaxUint32 * time.Second

type BlocklistConfig struct {
	Numbers []string
	File    string
}

type CallLogConfig struct {
	// Backend is one of stdout, postgres, redis.
	Backend   string
	QueueSize int
	Stream    string
}

// DBConfig is only required when CallLog.Backend == "postgres".
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// RedisConfig is only required when CallLog.Backend == "redis".
type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

const (
	CallLogBackendStdout   = "stdout"
	CallLogBackendPostgres = "postgres"
	CallLogBackendRedis    = "redis"
)

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	c.App.Port, parseErrs = intOr(parseErrs, "APP_PORT", 8080)
	c.App.LogLevel = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))

	// Both spellings are in circulation; LIVEKIT_* wins.
	c.LiveKit.URL = firstEnv("LIVEKIT_URL", "LK_URL")
	c.LiveKit.APIKey = firstEnv("LIVEKIT_API_KEY", "LK_API_KEY")
	c.LiveKit.APISecret = firstEnv("LIVEKIT_API_SECRET", "LK_API_SECRET")
	c.LiveKit.AgentName = strings.TrimSpace(os.Getenv("AGENT_NAME"))
	c.LiveKit.RequestTimeout, parseErrs = durationOr(parseErrs, "LIVEKIT_TIMEOUT", 0)

	c.Webhook.Path = strings.TrimSpace(os.Getenv("WEBHOOK_PATH"))
	c.Webhook.Secret = os.Getenv("WEBHOOK_SECRET")
	c.Webhook.CallTimeout, parseErrs = durationOr(parseErrs, "CALL_TIMEOUT", 0)
	c.Webhook.RollbackTimeout, parseErrs = durationOr(parseErrs, "ROLLBACK_TIMEOUT", 0)

	c.Room.EmptyTimeout, parseErrs = durationOr(parseErrs, "ROOM_EMPTY_TIMEOUT", 0)

	c.Blocklist.Numbers = splitList(os.Getenv("BLOCKED_NUMBERS"))
	c.Blocklist.File = strings.TrimSpace(os.Getenv("BLOCKLIST_FILE"))

	c.CallLog.Backend = strings.ToLower(strings.TrimSpace(os.Getenv("CALL_LOG_BACKEND")))
	c.CallLog.QueueSize, parseErrs = intOr(parseErrs, "CALL_LOG_QUEUE_SIZE", 0)
	c.CallLog.Stream = strings.TrimSpace(os.Getenv("CALL_LOG_STREAM"))

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	c.DB.Port, parseErrs = intOr(parseErrs, "DB_PORT", 5432)
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Port, parseErrs = intOr(parseErrs, "REDIS_PORT", 6379)
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports every problem at once and fills in defaults for
// optional settings.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.LogLevel != "" && !isValidLogLevel(c.App.LogLevel) {
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", c.App.LogLevel))
	}

	if c.LiveKit.URL == "" {
		errs = append(errs, errors.New("LIVEKIT_URL is required"))
	} else if !hasAnyPrefix(c.LiveKit.URL, "ws://", "wss://", "http://", "https://") {
		errs = append(errs, fmt.Errorf("LIVEKIT_URL must be a ws(s):// or http(s):// URL, got %q", c.LiveKit.URL))
	}
	if c.LiveKit.APIKey == "" {
		errs = append(errs, errors.New("LIVEKIT_API_KEY is required"))
	}
	if c.LiveKit.APISecret == "" {
		errs = append(errs, errors.New("LIVEKIT_API_SECRET is required"))
	}
	if c.LiveKit.AgentName == "" {
		c.LiveKit.AgentName = "voice-agent"
	}
	if c.LiveKit.RequestTimeout <= 0 {
		c.LiveKit.RequestTimeout = 5 * time.Second
	}

	if c.Webhook.Path == "" {
		c.Webhook.Path = "/webhook/call"
	} else if !strings.HasPrefix(c.Webhook.Path, "/") {
		errs = append(errs, fmt.Errorf("WEBHOOK_PATH must start with /, got %q", c.Webhook.Path))
	}
	if c.IsProduction() && c.Webhook.Secret == "" {
		errs = append(errs, errors.New("WEBHOOK_SECRET is required in production"))
	}
	if c.Webhook.CallTimeout <= 0 {
		c.Webhook.CallTimeout = 10 * time.Second
	}
	if c.Webhook.RollbackTimeout <= 0 {
		c.Webhook.RollbackTimeout = 5 * time.Second
	}

	if c.Room.EmptyTimeout <= 0 {
		c.Room.EmptyTimeout = 300 * time.Second
	} else if c.Room.EmptyTimeout > MaxRoomEmptyTimeout {
		errs = append(errs, fmt.Errorf("ROOM_EMPTY_TIMEOUT must be at most %ds, got %v", uint32(math.MaxUint32), c.Room.EmptyTimeout))
	}

	if c.CallLog.Backend == "" {
		c.CallLog.Backend = CallLogBackendStdout
	}
	if c.CallLog.QueueSize <= 0 {
		c.CallLog.QueueSize = 256
	}
	if c.CallLog.Stream == "" {
		c.CallLog.Stream = "call_log"
	}
	switch c.CallLog.Backend {
	case CallLogBackendStdout:
	case CallLogBackendPostgres:
		errs = append(errs, c.validateDB()...)
	case CallLogBackendRedis:
		if c.Redis.Host == "" {
			errs = append(errs, errors.New("REDIS_HOST is required for the redis call log backend"))
		}
		if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
	default:
		errs = append(errs, fmt.Errorf("CALL_LOG_BACKEND must be one of stdout, postgres, redis, got %q", c.CallLog.Backend))
	}

	return joinErrors(errs)
}

func (c *Config) validateDB() []error {
	var errs []error
	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required for the postgres call log backend"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required for the postgres call log backend"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required for the postgres call log backend"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func intOr(errs []error, key string, def int) (int, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, errs
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be an integer, got %q", key, v))
	}
	return n, errs
}

// durationOr accepts Go durations ("300s", "5m") and bare seconds ("300").
func durationOr(errs []error, key string, def time.Duration) (time.Duration, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, errs
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, errs
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be a duration, got %q", key, v))
	}
	return d, errs
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidLogLevel(v string) bool {
	switch v {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
