package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"eisim-progress/internal/model"
)

// EnvPrefix prefixes every environment override. Nested keys are separated
// by a double underscore: PROGRESS_TREND__WINDOW_SIZE -> trend.window_size.
const EnvPrefix = "PROGRESS_"

// EnvConfigFile names a YAML config file when --config is not given.
const EnvConfigFile = "PROGRESS_CONFIG"

// Config is the on-disk configuration shape (YAML).
type Config struct {
	Input     InputConfig     `koanf:"input"`
	Reconcile ReconcileConfig `koanf:"reconcile"`
	Trend     TrendConfig     `koanf:"trend"`
	Parser    ParserConfig    `koanf:"parser"`
	Report    ReportConfig    `koanf:"report"`
	API       APIConfig       `koanf:"api"`
	Log       LogConfig       `koanf:"log"`
}

// InputConfig describes the simulator's output layout.
type InputConfig struct {
	LogFolderMarker  string `koanf:"log_folder_marker"`
	CumulativeColumn string `koanf:"cumulative_column"`
	PriceColumn      string `koanf:"price_column"`
}

type ReconcileConfig struct {
	// Folders whose start times are closer than this are one episode.
	SplitThreshold time.Duration `koanf:"split_threshold"`
}

type TrendConfig struct {
	WindowSize int `koanf:"window_size"`
}

type ParserConfig struct {
	// Workers bounds concurrent log reads; 0 means runtime.NumCPU().
	Workers int `koanf:"workers"`
}

type ReportConfig struct {
	Dir  string `koanf:"dir"`
	HTML bool   `koanf:"html"`
}

type APIConfig struct {
	Port           string        `koanf:"port"`
	ResultsDir     string        `koanf:"results_dir"`
	CacheTTL       time.Duration `koanf:"cache_ttl"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			LogFolderMarker:  "Pricelogs",
			CumulativeColumn: model.ColumnCumulativeProfit,
			PriceColumn:      model.ColumnPrice,
		},
		Reconcile: ReconcileConfig{SplitThreshold: 2 * time.Second},
		Trend:     TrendConfig{WindowSize: 10},
		Report:    ReportConfig{HTML: true},
		API: APIConfig{
			Port:           "8080",
			CacheTTL:       time.Hour,
			AllowedOrigins: []string{"*"},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load layers defaults, the YAML file at path (or $PROGRESS_CONFIG when path
// is empty) and PROGRESS_* environment variables, then validates.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
func LoadUnchecked(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}

	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	c := *Default()
	if err := k.UnmarshalWithConf("", &c, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Input.LogFolderMarker) == "" {
		return errors.New("input.log_folder_marker is required")
	}
	if c.Input.CumulativeColumn == "" || c.Input.PriceColumn == "" {
		return errors.New("input.cumulative_column and input.price_column are required")
	}
	if c.Reconcile.SplitThreshold <= 0 {
		return errors.New("reconcile.split_threshold must be > 0")
	}
	if c.Trend.WindowSize < 1 {
		return errors.New("trend.window_size must be >= 1")
	}
	if c.Parser.Workers < 0 {
		return errors.New("parser.workers must be >= 0")
	}
	return nil
}

// ValidateAPI checks the settings only the HTTP server needs.
func (c *Config) ValidateAPI() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.API.ResultsDir == "" {
		return errors.New("api.results_dir is required")
	}
	if c.API.Port == "" {
		return errors.New("api.port is required")
	}
	if c.API.CacheTTL < 0 {
		return errors.New("api.cache_ttl must be >= 0")
	}
	return nil
}
