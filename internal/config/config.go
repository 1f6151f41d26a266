package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// Loading. Delimiter is comma, tab, semicolon, or empty/auto for sniffing.
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
	MaxRows   int    `mapstructure:"max_rows" yaml:"max_rows"`

	// Analysis
	MaxPlotPoints int   `mapstructure:"max_plot_points" yaml:"max_plot_points"`
	UseSampling   bool  `mapstructure:"use_sampling" yaml:"use_sampling"`
	SampleSeed    int64 `mapstructure:"sample_seed" yaml:"sample_seed"`
	MaxVIFColumns int   `mapstructure:"max_vif_columns" yaml:"max_vif_columns"`

	// HTTP API
	ServerAddr         string `mapstructure:"server_addr" yaml:"server_addr"`
	SessionIdleMinutes int    `mapstructure:"session_idle_minutes" yaml:"session_idle_minutes"`

	// Dataset downloads
	KaggleBaseURL      string  `mapstructure:"kaggle_base_url" yaml:"kaggle_base_url"`
	KaggleUsername     string  `mapstructure:"kaggle_username" yaml:"kaggle_username"`
	KaggleKey          string  `mapstructure:"kaggle_key" yaml:"kaggle_key"`
	DownloadTimeoutSec int     `mapstructure:"download_timeout_sec" yaml:"download_timeout_sec"`
	DownloadRatePerSec float64 `mapstructure:"download_rate_per_sec" yaml:"download_rate_per_sec"`
	BreakerMaxFailures int     `mapstructure:"breaker_max_failures" yaml:"breaker_max_failures"`
}

// Keys lists every settable key in display order.
var Keys = []string{
	"log_level", "log_format",
	"delimiter", "max_rows",
	"max_plot_points", "use_sampling", "sample_seed", "max_vif_columns",
	"server_addr", "session_idle_minutes",
	"kaggle_base_url", "kaggle_username", "kaggle_key",
	"download_timeout_sec", "download_rate_per_sec", "breaker_max_failures",
}

var defaults = map[string]any{
	"log_level":             "info",
	"log_format":            "text",
	"delimiter":             "",
	"max_rows":              0,
	"max_plot_points":       10000,
	"use_sampling":          true,
	"sample_seed":           42,
	"max_vif_columns":       30,
	"server_addr":           "127.0.0.1:8080",
	"session_idle_minutes":  60,
	"kaggle_base_url":       "https://www.kaggle.com/api/v1",
	"kaggle_username":       "",
	"kaggle_key":            "",
	"download_timeout_sec":  120,
	"download_rate_per_sec": 1.0,
	"breaker_max_failures":  3,
}

// Defaults returns the built-in configuration, ignoring files and env.
func Defaults() *Global {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	var c Global
	_ = v.Unmarshal(&c)
	return &c
}

// ErrUnknownKey is returned by Set for keys outside Keys.
var ErrUnknownKey = errors.New("unknown key")

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".edaloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.edaloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	// credentials may be stored here
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. A .env file in the working
// directory is read first; it never overrides variables already set.
func Load(cfgFile string) (*Global, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("EDALOOM")
	v.AutomaticEnv()

	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	// the Kaggle CLI's own variables
	_ = v.BindEnv("kaggle_username", "EDALOOM_KAGGLE_USERNAME", "KAGGLE_USERNAME")
	_ = v.BindEnv("kaggle_key", "EDALOOM_KAGGLE_KEY", "KAGGLE_KEY")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if _, err := c.DelimiterRune(); err != nil {
		return nil, err
	}
	return &c, nil
}

// DelimiterRune decodes the delimiter setting; 0 means sniff.
func (c *Global) DelimiterRune() (rune, error) {
	return dataset.ParseDelimiter(c.Delimiter)
}

// Set assigns key from its string form.
func (c *Global) Set(key, val string) error {
	atoi := func(min int) (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < min {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "warning", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
	case "log_format":
		switch strings.ToLower(val) {
		case "text", "json":
			c.LogFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_format: %s (use text or json)", val)
		}
	case "delimiter":
		if _, err := dataset.ParseDelimiter(val); err != nil {
			return err
		}
		c.Delimiter = val
	case "max_rows":
		c.MaxRows, err = atoi(0)
	case "max_plot_points":
		c.MaxPlotPoints, err = atoi(1)
	case "use_sampling":
		b, perr := strconv.ParseBool(val)
		if perr != nil {
			return fmt.Errorf("invalid bool for use_sampling: %v", val)
		}
		c.UseSampling = b
	case "sample_seed":
		i, perr := strconv.ParseInt(val, 10, 64)
		if perr != nil {
			return fmt.Errorf("invalid int for sample_seed: %v", val)
		}
		c.SampleSeed = i
	case "max_vif_columns":
		c.MaxVIFColumns, err = atoi(0)
	case "server_addr":
		c.ServerAddr = val
	case "session_idle_minutes":
		c.SessionIdleMinutes, err = atoi(0)
	case "kaggle_base_url":
		c.KaggleBaseURL = val
	case "kaggle_username":
		c.KaggleUsername = val
	case "kaggle_key":
		c.KaggleKey = val
	case "download_timeout_sec":
		c.DownloadTimeoutSec, err = atoi(1)
	case "download_rate_per_sec":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil || f <= 0 {
			return fmt.Errorf("invalid float for download_rate_per_sec: %v", val)
		}
		c.DownloadRatePerSec = f
	case "breaker_max_failures":
		c.BreakerMaxFailures, err = atoi(1)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return err
}

// Get returns the display form of key. Secrets are masked.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "log_level":
		return c.LogLevel, nil
	case "log_format":
		return c.LogFormat, nil
	case "delimiter":
		return c.Delimiter, nil
	case "max_rows":
		return strconv.Itoa(c.MaxRows), nil
	case "max_plot_points":
		return strconv.Itoa(c.MaxPlotPoints), nil
	case "use_sampling":
		return strconv.FormatBool(c.UseSampling), nil
	case "sample_seed":
		return strconv.FormatInt(c.SampleSeed, 10), nil
	case "max_vif_columns":
		return strconv.Itoa(c.MaxVIFColumns), nil
	case "server_addr":
		return c.ServerAddr, nil
	case "session_idle_minutes":
		return strconv.Itoa(c.SessionIdleMinutes), nil
	case "kaggle_base_url":
		return c.KaggleBaseURL, nil
	case "kaggle_username":
		return c.KaggleUsername, nil
	case "kaggle_key":
		return Mask(c.KaggleKey), nil
	case "download_timeout_sec":
		return strconv.Itoa(c.DownloadTimeoutSec), nil
	case "download_rate_per_sec":
		return strconv.FormatFloat(c.DownloadRatePerSec, 'g', -1, 64), nil
	case "breaker_max_failures":
		return strconv.Itoa(c.BreakerMaxFailures), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
}

// Mask hides all but the ends of a secret.
func Mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
