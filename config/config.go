package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/gommon/bytes"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type RateLimit struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type Events struct {
	ConnectionString string `yaml:"connectionString"`
	Queue            string `yaml:"queue"`
}

func (e Events) Enabled() bool {
	return e.ConnectionString != "" && e.Queue != ""
}

// Config holds every runtime setting of the server.
type Config struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	LogLevel    string        `yaml:"logLevel"`
	LogFormat   string        `yaml:"logFormat"`
	DatabaseURL string        `yaml:"databaseUrl"`
	RedisURL    string        `yaml:"redisUrl"`
	CacheTTL    time.Duration `yaml:"cacheTtl"`
	RateLimit   RateLimit     `yaml:"rateLimit"`
	Events      Events        `yaml:"events"`
	CORSOrigins []string      `yaml:"corsOrigins"`
	BodyLimit   string        `yaml:"bodyLimit"`
}

func Default() Config {
	return Config{
		Host:        "0.0.0.0",
		Port:        3000,
		LogLevel:    "info",
		LogFormat:   "text",
		DatabaseURL: ":memory:",
		CacheTTL:    30 * time.Second,
		RateLimit:   RateLimit{Requests: 100, Window: time.Minute},
		CORSOrigins: []string{"*"},
		BodyLimit:   "64K",
	}
}

// Load reads defaults, then the YAML file at path (if any), then environment
// variables. An empty path falls back to CONFIG_FILE.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
		return nil
	}
	duration := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("HOST", &c.Host)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("DATABASE_URL", &c.DatabaseURL)
	str("REDIS_CONNECTION_STRING", &c.RedisURL)
	str("STORAGE_CONNECTION_STRING", &c.Events.ConnectionString)
	str("EVENTS_QUEUE", &c.Events.Queue)
	str("BODY_LIMIT", &c.BodyLimit)
	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		c.CORSOrigins = splitList(v)
	}

	return errors.Join(
		integer("PORT", &c.Port),
		integer("RATE_LIMIT_MAX", &c.RateLimit.Requests),
		duration("RATE_LIMIT_WINDOW", &c.RateLimit.Window),
		duration("CACHE_TTL", &c.CacheTTL),
	)
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}
	if c.RateLimit.Requests <= 0 {
		errs = append(errs, errors.New("rateLimit.requests must be greater than zero"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rateLimit.window must be greater than zero"))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, errors.New("cacheTtl must not be negative"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logFormat must be text or json, got %q", c.LogFormat))
	}
	if n, err := bytes.Parse(c.BodyLimit); err != nil || n <= 0 {
		errs = append(errs, fmt.Errorf("bodyLimit must be a size such as 64K, got %q", c.BodyLimit))
	}
	if (c.Events.ConnectionString == "") != (c.Events.Queue == "") {
		errs = append(errs, errors.New("events.connectionString and events.queue must be set together"))
	}
	return errors.Join(errs...)
}

// ParseLevel accepts trace, debug, info, warn and error.
func ParseLevel(level string) (log.Level, error) {
	switch strings.ToLower(level) {
	case "trace":
		return log.TraceLevel, nil
	case "debug":
		return log.DebugLevel, nil
	case "info", "":
		return log.InfoLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	}
	return log.InfoLevel, fmt.Errorf("unknown log level %q", level)
}

// NewLogger builds the process logger from the log settings.
func (c Config) NewLogger() *log.Logger {
	logger := log.New()
	if lvl, err := ParseLevel(c.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}
	if c.LogFormat == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	}
	return logger
}
