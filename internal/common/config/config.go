// Package config provides configuration management for androidctl.
// It supports loading configuration from environment variables, config
// files, and defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

// Config holds all configuration sections for androidctl.
type Config struct {
	Server      ServerConfig         `mapstructure:"server"`
	Database    DatabaseConfig       `mapstructure:"database"`
	NATS        NATSConfig           `mapstructure:"nats"`
	Events      EventsConfig         `mapstructure:"events"`
	Docker      DockerConfig         `mapstructure:"docker"`
	Model       v1.ModelConfig       `mapstructure:"model"`
	Agent       v1.AgentConfig       `mapstructure:"agent"`
	StepTracker StepTrackerConfig    `mapstructure:"stepTracker"`
	BlobStore   BlobStoreConfig      `mapstructure:"blobStore"`
	Session     SessionManagerConfig `mapstructure:"session"`
	Logging     LoggingConfig        `mapstructure:"logging"`
}

// ServerConfig holds the address of the HTTP listener cmd/androidctl serves:
// a liveness probe (/health), app and device listing, session creation,
// task start, and a WebSocket stream of a session's events.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds TaskStore connection configuration.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // "sqlite" or "pgx"
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbName"`
	SSLMode  string `mapstructure:"sslMode"`
	MaxConns int    `mapstructure:"maxConns"`
	MinConns int    `mapstructure:"minConns"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// NATSConfig holds the optional cross-process event bus configuration. An
// empty URL means StepEvents/TerminalEvents only fan out to in-process
// subscribers.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	ClientID      string `mapstructure:"clientId"`
	MaxReconnects int    `mapstructure:"maxReconnects"`
}

// EventsConfig holds event bus namespace configuration.
type EventsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

// DockerConfig holds Docker client configuration for the emulator pool.
type DockerConfig struct {
	// Enabled controls whether the emulator pool provisions containers.
	// When false, only physical/pre-connected devices are used.
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	APIVersion     string `mapstructure:"apiVersion"`
	Image          string `mapstructure:"image"`
	DefaultNetwork string `mapstructure:"defaultNetwork"`
	AdbPort        int    `mapstructure:"adbPort"`
}

// StepTrackerConfig holds StepTracker buffering/flush configuration.
type StepTrackerConfig struct {
	BufferCapacity int           `mapstructure:"bufferCapacity"`
	FlushInterval  time.Duration `mapstructure:"flushInterval"`
	SpillPath      string        `mapstructure:"spillPath"`
	GraceOnClose   time.Duration `mapstructure:"graceOnClose"`
}

// BlobStoreConfig holds the reference filesystem-backed BlobStore
// configuration.
type BlobStoreConfig struct {
	RootDir string `mapstructure:"rootDir"`
	BaseURL string `mapstructure:"baseUrl"`
}

// SessionManagerConfig holds SessionManager's subscriber fan-out tunables.
type SessionManagerConfig struct {
	// SubscriberBacklog bounds the per-subscriber buffered event queue.
	// A subscriber that falls this far behind is disconnected.
	SubscriberBacklog int `mapstructure:"subscriberBacklog"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"outputPath"`
}

// detectDefaultLogFormat returns "json" under Kubernetes/production, "text"
// otherwise (more readable on a terminal).
func detectDefaultLogFormat() string {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return "json"
	}
	if env := os.Getenv("ANDROIDCTL_ENV"); env == "production" || env == "prod" {
		return "json"
	}
	return "text"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./androidctl.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "androidctl")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbName", "androidctl")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxConns", 25)
	v.SetDefault("database.minConns", 5)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.clientId", "androidctl")
	v.SetDefault("nats.maxReconnects", 10)

	v.SetDefault("events.namespace", "")

	v.SetDefault("docker.enabled", false)
	v.SetDefault("docker.host", defaultDockerHost())
	v.SetDefault("docker.apiVersion", "1.41")
	v.SetDefault("docker.image", "budtmo/docker-android:emulator_11.0")
	v.SetDefault("docker.defaultNetwork", "androidctl-network")
	v.SetDefault("docker.adbPort", 5555)

	v.SetDefault("model.model", "")
	v.SetDefault("model.maxTokens", 1024)
	v.SetDefault("model.temperature", 0.0)
	v.SetDefault("model.topP", 0.9)
	v.SetDefault("model.frequencyPenalty", 0.0)
	v.SetDefault("model.baseTimeout", 30*time.Second)
	v.SetDefault("model.maxTimeout", 180*time.Second)
	v.SetDefault("model.retryCount", 3)
	v.SetDefault("model.retryGrowthFactor", 1.5)

	v.SetDefault("agent.maxSteps", 100)
	v.SetDefault("agent.language", "en")
	v.SetDefault("agent.verbose", false)
	v.SetDefault("agent.recording", false)

	v.SetDefault("stepTracker.bufferCapacity", 64)
	v.SetDefault("stepTracker.flushInterval", 5*time.Second)
	v.SetDefault("stepTracker.spillPath", "./androidctl-spill.log")
	v.SetDefault("stepTracker.graceOnClose", 5*time.Second)

	v.SetDefault("blobStore.rootDir", "./androidctl-blobs")
	v.SetDefault("blobStore.baseUrl", "file://./androidctl-blobs")

	v.SetDefault("session.subscriberBacklog", 256)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", detectDefaultLogFormat())
	v.SetDefault("logging.outputPath", "stdout")
}

// defaultDockerHost returns the platform-appropriate Docker socket path.
// Respects DOCKER_HOST env var as override (standard Docker convention).
func defaultDockerHost() string {
	if host := os.Getenv("DOCKER_HOST"); host != "" {
		return host
	}
	return "unix:///var/run/docker.sock"
}

// Load reads configuration from environment variables, config file, and
// defaults.
func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath reads configuration from the specified path or default
// locations. Environment variables use the ANDROIDCTL_ prefix with
// underscore nesting (e.g. ANDROIDCTL_MODEL_ENDPOINT).
func LoadWithPath(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("ANDROIDCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("model.endpoint", "ANDROIDCTL_MODEL_ENDPOINT")
	_ = v.BindEnv("model.apiKey", "ANDROIDCTL_MODEL_API_KEY")
	_ = v.BindEnv("logging.level", "ANDROIDCTL_LOG_LEVEL")
	_ = v.BindEnv("events.namespace", "ANDROIDCTL_EVENTS_NAMESPACE")

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/androidctl/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if cfg.Database.Driver == "pgx" {
		if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
			errs = append(errs, "database.port must be between 1 and 65535")
		}
		if cfg.Database.User == "" {
			errs = append(errs, "database.user is required for the pgx driver")
		}
		if cfg.Database.DBName == "" {
			errs = append(errs, "database.dbName is required for the pgx driver")
		}
	} else if cfg.Database.Driver != "sqlite" {
		errs = append(errs, "database.driver must be one of: sqlite, pgx")
	}

	if cfg.Agent.MaxSteps < 1 {
		errs = append(errs, "agent.maxSteps must be >= 1")
	}
	if cfg.Agent.Language != v1.LanguageChinese && cfg.Agent.Language != v1.LanguageEnglish {
		errs = append(errs, "agent.language must be one of: cn, en")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, "logging.format must be one of: json, text")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}

	return nil
}
