package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"grocery_deals/internal/models"
)

// Config holds the application configuration parameters.
type Config struct {
	// Keywords are case-insensitive patterns, tried in order.
	Keywords []string       `mapstructure:"keywords"`
	Stores   []models.Store `mapstructure:"stores"`
	Location string         `mapstructure:"location"`
	Output   OutputConfig   `mapstructure:"output"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Database DatabaseConfig `mapstructure:"database"`
	API      APIConfig      `mapstructure:"api"`
}

// OutputConfig says where the report and CSV files go.
type OutputConfig struct {
	Path    string `mapstructure:"path"`
	DataDir string `mapstructure:"data_dir"`
}

// FetchConfig tunes page fetching.
type FetchConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	Workers    int           `mapstructure:"workers"`
	Rate       float64       `mapstructure:"rate"`
	Burst      int           `mapstructure:"burst"`
	UserAgent  string        `mapstructure:"user_agent"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// DatabaseConfig selects the optional deal history database.
type DatabaseConfig struct {
	// Driver is "", "sqlite" or "postgres". Empty disables the database.
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

// APIConfig holds the HTTP API settings.
type APIConfig struct {
	Port string `mapstructure:"port"`
}

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// EnvPrefix prefixes every environment override, e.g. APP_FETCH_WORKERS.
const EnvPrefix = "APP"

func setDefaults(v *viper.Viper) {
	v.SetDefault("keywords", []string{})
	v.SetDefault("location", "")
	v.SetDefault("output.path", "./docs/index.md")
	v.SetDefault("output.data_dir", "./data")
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.workers", 4)
	v.SetDefault("fetch.rate", 2.0)
	v.SetDefault("fetch.burst", 2)
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("fetch.max_retries", 1)
	v.SetDefault("database.driver", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "")
	v.SetDefault("api.port", "8080")
}

// newViper prepares a viper instance for path. An empty path looks for
// config.yaml in the working directory.
func newViper(path string) *viper.Viper {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

// read loads the config file. A missing file is not an error; found reports
// whether one was read.
func read(v *viper.Viper) (found bool, err error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("error reading config file: %w", err)
	}
	return true, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if cfg.Fetch.Workers <= 0 {
		cfg.Fetch.Workers = 1
	}
	if cfg.Fetch.MaxRetries < 0 {
		cfg.Fetch.MaxRetries = 0
	}
	return &cfg, nil
}

// Load reads configuration from path (or ./config.yaml), APP_ environment
// variables and defaults. Missing keywords or stores load as empty lists.
func Load(path string) (*Config, error) {
	v := newViper(path)
	if _, err := read(v); err != nil {
		return nil, err
	}
	return decode(v)
}

// Watch loads the configuration like Load and then calls onChange with the
// new configuration every time the file changes. Without a config file there
// is nothing to watch and only the initial configuration is returned.
func Watch(path string, logger logrus.FieldLogger, onChange func(*Config)) (*Config, error) {
	v := newViper(path)
	found, err := read(v)
	if err != nil {
		return nil, err
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if !found {
		logger.Info("No config file found, using defaults and environment variables")
		return cfg, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		next, err := decode(v)
		if err != nil {
			logger.WithError(err).WithField("file", e.Name).Warn("Ignoring invalid config change")
			return
		}
		logger.WithField("file", e.Name).Info("Config reloaded")
		onChange(next)
	})
	v.WatchConfig()
	logger.WithField("file", v.ConfigFileUsed()).Debug("Watching config file")
	return cfg, nil
}

// DatabaseDSN returns the connection string for the configured driver. SQLite
// defaults to a file in the data directory; PostgreSQL builds one from the
// individual settings when no DSN is given.
func (c *Config) DatabaseDSN() (string, error) {
	db := c.Database
	if db.DSN != "" {
		return db.DSN, nil
	}
	switch db.Driver {
	case "":
		return "", nil
	case DriverSQLite:
		return filepath.Join(c.Output.DataDir, "deals.db"), nil
	case DriverPostgres:
		return buildPostgresDSN(db)
	default:
		return "", fmt.Errorf("unsupported database driver %q", db.Driver)
	}
}

// buildPostgresDSN constructs the PostgreSQL DSN from individual config values.
func buildPostgresDSN(db DatabaseConfig) (string, error) {
	if db.Host == "" || db.User == "" || db.Name == "" {
		return "", fmt.Errorf("missing mandatory database configuration (host: %q, user: %q, name: %q)", db.Host, db.User, db.Name)
	}

	// Standard PostgreSQL DSN format
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		db.Host, db.User, db.Password, db.Name, db.Port,
	), nil
}

// PageTimeout bounds one page fetch including its retries. Each attempt is
// bounded by Timeout on its own, so a timed-out attempt leaves room to retry.
func (f FetchConfig) PageTimeout() time.Duration {
	if f.Timeout <= 0 {
		return 0
	}
	return f.Timeout * time.Duration(f.MaxRetries+1)
}

// URLCount is the number of pages a run will visit.
func (c *Config) URLCount() int {
	n := 0
	for _, s := range c.Stores {
		n += len(s.URLs)
	}
	return n
}

// Validate reports configuration that makes a run pointless. It is advisory:
// a run with no stores still completes and writes empty outputs.
func (c *Config) Validate() error {
	if len(c.Stores) == 0 {
		return models.ErrNoStores
	}
	return nil
}
