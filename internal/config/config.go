// Package config loads application configuration and initializes logging.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Projects ProjectsConfig `yaml:"projects" mapstructure:"projects"`
	Datasets DatasetsConfig `yaml:"datasets" mapstructure:"datasets"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// StoreConfig configures the run log backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// FetchConfig configures dataset and registry downloads.
type FetchConfig struct {
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	HostRate    float64 `yaml:"host_rate" mapstructure:"host_rate"`
	TempDir     string  `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// Timeout returns the request timeout as a duration.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSecs) * time.Second
}

// AnalysisConfig holds engine defaults.
type AnalysisConfig struct {
	RadiusKM     float64 `yaml:"radius_km" mapstructure:"radius_km"`
	ScanRadiusKM float64 `yaml:"scan_radius_km" mapstructure:"scan_radius_km"`
	BufferSteps  int     `yaml:"buffer_steps" mapstructure:"buffer_steps"`
	ListLimit    int     `yaml:"list_limit" mapstructure:"list_limit"`
}

// ProjectsConfig locates the candidate-project registry. XLSXPath, when set,
// takes precedence over the web-app URL.
type ProjectsConfig struct {
	SheetURL string   `yaml:"sheet_url" mapstructure:"sheet_url"`
	XLSXPath string   `yaml:"xlsx_path" mapstructure:"xlsx_path"`
	Sheets   []string `yaml:"sheets" mapstructure:"sheets"`
}

// DatasetsConfig points at an optional catalog file merged over the
// built-in sources.
type DatasetsConfig struct {
	CatalogPath string `yaml:"catalog_path" mapstructure:"catalog_path"`
}

// Load reads config.yaml from the working directory, if present, and the
// environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. A named file must exist;
// an empty path falls back to an optional config.yaml.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	v.SetConfigType("yaml")

	// Environment
	v.SetEnvPrefix("PROXIMITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "proximity.db")
	v.SetDefault("fetch.user_agent", "proximity-cli/1.0")
	v.SetDefault("fetch.timeout_secs", 120)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.host_rate", 5.0)
	v.SetDefault("fetch.temp_dir", "")
	v.SetDefault("analysis.radius_km", 20.0)
	v.SetDefault("analysis.scan_radius_km", 50.0)
	v.SetDefault("analysis.buffer_steps", 64)
	v.SetDefault("analysis.list_limit", 80)
	v.SetDefault("projects.sheet_url", "")
	v.SetDefault("projects.xlsx_path", "")
	v.SetDefault("projects.sheets", []string{"BBDD.GEN", "BBDD.TRA"})
	v.SetDefault("datasets.catalog_path", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode needs. Modes are "analyze",
// "record" (analyze plus the run log) and "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "analyze":
	case "record":
		errs = append(errs, c.storeErrors()...)
	case "serve":
		errs = append(errs, c.storeErrors()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Analysis.RadiusKM <= 0 || c.Analysis.ScanRadiusKM <= 0 {
		errs = append(errs, "analysis radii must be > 0")
	}
	if c.Analysis.BufferSteps < 3 {
		errs = append(errs, "analysis.buffer_steps must be >= 3")
	}
	if c.Analysis.ListLimit < 0 {
		errs = append(errs, "analysis.list_limit must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) storeErrors() []string {
	var errs []string
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
