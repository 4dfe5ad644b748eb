// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jason-s-yu/belatro/internal/database"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is everything the binaries read from the environment.
type Config struct {
	APIURL string `yaml:"api_url"`
	WSURL  string `yaml:"ws_url"`

	// Store selects where the session lives: "file" or "redis".
	Store     string `yaml:"store"`
	StateFile string `yaml:"state_file"`
	// StoreKey, when set, seals the token and lobby passwords at rest.
	StoreKey string `yaml:"store_key"`

	RedisAddr    string `yaml:"redis_addr"`
	RedisDB      int    `yaml:"redis_db"`
	JournalQueue string `yaml:"journal_queue"`
	// Journal enables recording of match traffic to Redis.
	Journal bool `yaml:"journal"`

	ReconnectBase     time.Duration `yaml:"reconnect_base"`
	ReconnectMax      time.Duration `yaml:"reconnect_max"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	HistorianBatchSize int           `yaml:"historian_batch_size"`
	HistorianFlush     time.Duration `yaml:"historian_flush"`
	HistorianIdle      time.Duration `yaml:"historian_idle"`

	Postgres database.Options `yaml:"postgres"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration for a backend on localhost:8080.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		APIURL:             "http://localhost:8080",
		WSURL:              "ws://localhost:8080/ws/websocket",
		Store:              "file",
		StateFile:          filepath.Join(home, ".belatro", "state.yaml"),
		RedisAddr:          "localhost:6379",
		JournalQueue:       "belatro_match_events",
		ReconnectBase:      time.Second,
		ReconnectMax:       30 * time.Second,
		HeartbeatInterval:  9 * time.Second,
		HistorianBatchSize: 20,
		HistorianFlush:     500 * time.Millisecond,
		HistorianIdle:      10 * time.Minute,
		Postgres: database.Options{
			Host:     "localhost",
			Port:     "5432",
			Database: "belatro",
		},
		LogLevel: "info",
	}
}

// Load starts from Default, applies the YAML file named by BELATRO_CONFIG
// when set, then lets environment variables override individual keys.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("BELATRO_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.APIURL = getEnv("BELATRO_API_URL", cfg.APIURL)
	cfg.WSURL = getEnv("BELATRO_WS_URL", cfg.WSURL)
	cfg.Store = getEnv("BELATRO_STORE", cfg.Store)
	cfg.StateFile = getEnv("BELATRO_STATE_FILE", cfg.StateFile)
	cfg.StoreKey = getEnv("BELATRO_STORE_KEY", cfg.StoreKey)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)
	cfg.JournalQueue = getEnv("JOURNAL_QUEUE_NAME", cfg.JournalQueue)
	cfg.Journal = getEnvBool("BELATRO_JOURNAL", cfg.Journal)
	cfg.ReconnectBase = getEnvDuration("BELATRO_RECONNECT_BASE", cfg.ReconnectBase)
	cfg.ReconnectMax = getEnvDuration("BELATRO_RECONNECT_MAX", cfg.ReconnectMax)
	cfg.HeartbeatInterval = getEnvDuration("BELATRO_HEARTBEAT", cfg.HeartbeatInterval)
	cfg.HistorianBatchSize = getEnvInt("HISTORIAN_BATCH_SIZE", cfg.HistorianBatchSize)
	cfg.HistorianFlush = getEnvDuration("HISTORIAN_FLUSH", cfg.HistorianFlush)
	cfg.HistorianIdle = getEnvDuration("HISTORIAN_IDLE", cfg.HistorianIdle)
	cfg.Postgres.User = getEnv("POSTGRES_USER", cfg.Postgres.User)
	cfg.Postgres.Password = getEnv("POSTGRES_PASSWORD", cfg.Postgres.Password)
	cfg.Postgres.Host = getEnv("PG_HOST", cfg.Postgres.Host)
	cfg.Postgres.Port = getEnv("PG_PORT", cfg.Postgres.Port)
	cfg.Postgres.Database = getEnv("PG_DATABASE", cfg.Postgres.Database)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.APIURL == "" {
		errs = append(errs, errors.New("api url is required"))
	}
	if c.WSURL == "" {
		errs = append(errs, errors.New("websocket url is required"))
	}
	if c.Store != "file" && c.Store != "redis" {
		errs = append(errs, fmt.Errorf("unknown store %q, want file or redis", c.Store))
	}
	if c.ReconnectBase <= 0 || c.ReconnectMax < c.ReconnectBase {
		errs = append(errs, fmt.Errorf("invalid reconnect backoff %s..%s", c.ReconnectBase, c.ReconnectMax))
	}
	if c.HeartbeatInterval <= 0 {
		errs = append(errs, errors.New("heartbeat interval must be positive"))
	}
	return errors.Join(errs...)
}

// NewLogger builds the logrus logger for the given level name.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", level)
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// getEnvDuration accepts Go durations ("1.5s") or plain milliseconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}
