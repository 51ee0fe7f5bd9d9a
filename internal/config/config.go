package config

import (
	"assignmentTracker/internal/visibility"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "TRACKER"

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Repository RepositoryConfig `mapstructure:"repository"`
	SQLite     FileConfig       `mapstructure:"sqlite"`
	Sheet      FileConfig       `mapstructure:"sheet"`
	Visibility VisibilityConfig `mapstructure:"visibility"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Calendar   CalendarConfig   `mapstructure:"calendar"`
	CORS       CORSConfig       `mapstructure:"cors"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	RateLimit       int           `mapstructure:"rate_limit"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ConnectAttempts int           `mapstructure:"connect_attempts"`
}

type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

type RepositoryConfig struct {
	Type string `mapstructure:"type"` // inmemory, postgres, sqlite или sheet
}

type FileConfig struct {
	Path string `mapstructure:"path"`
}

type VisibilityConfig struct {
	SharedEdit string `mapstructure:"shared_edit"` // owner, author или everyone
}

type WorkerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type CalendarConfig struct {
	Timezone string `mapstructure:"timezone"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

const (
	RepositoryInMemory = "inmemory"
	RepositoryPostgres = "postgres"
	RepositorySQLite   = "sqlite"
	RepositorySheet    = "sheet"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.rate_limit", 100)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.idle_timeout", 5*time.Minute)
	v.SetDefault("database.connect_attempts", 5)

	v.SetDefault("logging.development", false)
	v.SetDefault("repository.type", RepositoryInMemory)
	v.SetDefault("sqlite.path", "data/tracker.db")
	v.SetDefault("sheet.path", "data/tracker.yml")
	v.SetDefault("visibility.shared_edit", string(visibility.PolicyOwner))

	v.SetDefault("worker.enabled", true)
	v.SetDefault("worker.interval", time.Hour)

	v.SetDefault("calendar.timezone", "UTC")
	v.SetDefault("cors.allowed_origins", []string{"*"})
}

// Load читает конфиг: значения по умолчанию, затем файл, затем переменные TRACKER_*.
// Пустой path означает необязательный config.yml в текущем каталоге.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("не могу прочитать %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("ошибка парсинга config.yml: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("разбор конфига: %w", err)
	}

	cfg.Repository.Type = strings.ToLower(strings.TrimSpace(cfg.Repository.Type))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Repository.Type {
	case RepositoryInMemory:
	case RepositoryPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("database.url обязателен для репозитория %s", c.Repository.Type)
		}
	case RepositorySQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite.path обязателен для репозитория %s", c.Repository.Type)
		}
	case RepositorySheet:
		if c.Sheet.Path == "" {
			return fmt.Errorf("sheet.path обязателен для репозитория %s", c.Repository.Type)
		}
	default:
		return fmt.Errorf("неизвестный тип репозитория %q", c.Repository.Type)
	}

	if _, err := visibility.ParsePolicy(c.Visibility.SharedEdit); err != nil {
		return fmt.Errorf("visibility.shared_edit: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Worker.Enabled && c.Worker.Interval <= 0 {
		return fmt.Errorf("worker.interval должен быть положительным")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit не может быть отрицательным")
	}
	return nil
}

func (c *Config) Policy() visibility.Policy {
	policy, err := visibility.ParsePolicy(c.Visibility.SharedEdit)
	if err != nil {
		return visibility.PolicyOwner
	}
	return policy
}

func (c *Config) Location() (*time.Location, error) {
	if c.Calendar.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Calendar.Timezone)
	if err != nil {
		return nil, fmt.Errorf("calendar.timezone: %w", err)
	}
	return loc, nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
