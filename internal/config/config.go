package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. KBCATALOG_DB_PATH.
const EnvPrefix = "KBCATALOG"

// Configuration keys, shared by the config file, env vars and CLI flags.
const (
	KeyDBPath         = "db_path"
	KeyPort           = "port"
	KeyRateLimit      = "rate_limit"
	KeyRequestLogging = "request_logging"
	KeyLogLevel       = "log_level"
	KeyLogFormat      = "log_format"
	KeyManifestPath   = "manifest_path"
	KeyStaticDir      = "static_dir"
	KeyWatch          = "watch"
	KeyWatchDebounce  = "watch_debounce"
	KeyServer         = "server"
	KeyDocker         = "docker"
)

// Config holds the kbcatalog runtime configuration.
// Precedence: flags > environment > config file > defaults.
type Config struct {
	// DBPath is the SQLite catalog file
	DBPath string `mapstructure:"db_path"`

	// Port the HTTP API listens on
	Port int `mapstructure:"port"`

	RateLimit      bool `mapstructure:"rate_limit"`
	RequestLogging bool `mapstructure:"request_logging"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// ManifestPath is the catalog manifest. Empty means the embedded catalog.
	ManifestPath string `mapstructure:"manifest_path"`

	// StaticDir serves a browser UI when set
	StaticDir string `mapstructure:"static_dir"`

	// Watch reloads the catalog when ManifestPath changes
	Watch         bool          `mapstructure:"watch"`
	WatchDebounce time.Duration `mapstructure:"watch_debounce"`

	// Server is the base URL of a remote API. When set the CLI queries it
	// instead of opening DBPath.
	Server string `mapstructure:"server"`

	// Docker enables live container status for the monitoring components
	Docker bool `mapstructure:"docker"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		DBPath:        "/data/kbcatalog.db",
		Port:          3000,
		RateLimit:     true,
		LogLevel:      "info",
		LogFormat:     "text",
		WatchDebounce: 500 * time.Millisecond,
		Docker:        true,
	}
}

// NewViper returns a viper instance carrying the defaults and reading
// KBCATALOG_* environment variables. CLI flags are bound onto it by the caller.
func NewViper() *viper.Viper {
	v := viper.New()

	d := Defaults()
	v.SetDefault(KeyDBPath, d.DBPath)
	v.SetDefault(KeyPort, d.Port)
	v.SetDefault(KeyRateLimit, d.RateLimit)
	v.SetDefault(KeyRequestLogging, d.RequestLogging)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyLogFormat, d.LogFormat)
	v.SetDefault(KeyManifestPath, d.ManifestPath)
	v.SetDefault(KeyStaticDir, d.StaticDir)
	v.SetDefault(KeyWatch, d.Watch)
	v.SetDefault(KeyWatchDebounce, d.WatchDebounce)
	v.SetDefault(KeyServer, d.Server)
	v.SetDefault(KeyDocker, d.Docker)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the optional config file into v and decodes the result.
// With an explicit configFile a missing file is an error; otherwise
// kbcatalog.yaml is looked up in the working directory and /etc/kbcatalog,
// and its absence is not.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("kbcatalog")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/kbcatalog")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// Addr is the listen address for the HTTP API.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Remote reports whether the CLI should talk to a remote API.
func (c *Config) Remote() bool {
	return strings.TrimSpace(c.Server) != ""
}
