package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Insights runtime
	APIKey                string  `mapstructure:"api_key" yaml:"api_key"`
	Provider              string  `mapstructure:"provider" yaml:"provider"`
	Model                 string  `mapstructure:"model" yaml:"model"`
	MaxTokens             int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature           float64 `mapstructure:"temperature" yaml:"temperature"`
	ApplyGenerationConfig bool    `mapstructure:"apply_generation_config" yaml:"apply_generation_config"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host"`

	// Web server
	Addr          string `mapstructure:"addr" yaml:"addr"`
	SessionSecret string `mapstructure:"session_secret" yaml:"session_secret"`
	MaxUploadMB   int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`

	// Dashboard
	MaxDisplayRows    int    `mapstructure:"max_display_rows" yaml:"max_display_rows"`
	DefaultPlotHeight int    `mapstructure:"default_plot_height" yaml:"default_plot_height"`
	ChartTheme        string `mapstructure:"chart_theme" yaml:"chart_theme"`
	CSVDelimiter      string `mapstructure:"csv_delimiter" yaml:"csv_delimiter"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// HTTPTimeout returns the runtime HTTP timeout; zero means none.
func (c *Global) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// RetryBaseDelay returns the base backoff between attempts.
func (c *Global) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}

// RetryMaxDelay returns the backoff cap.
func (c *Global) RetryMaxDelay() time.Duration {
	return time.Duration(c.RetryMaxDelayMs) * time.Millisecond
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Global) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Delimiter returns the first rune of csv_delimiter, or ',' when unset.
func (c *Global) Delimiter() rune {
	for _, r := range c.CSVDelimiter {
		return r
	}
	return ','
}

// DefaultModel is the fixed insights model identifier.
const DefaultModel = "gemini-2.5-pro-exp-03-25"

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", "gemini")
	v.SetDefault("model", DefaultModel)
	v.SetDefault("max_tokens", 1000)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("apply_generation_config", true)
	// A single attempt with no client deadline
	v.SetDefault("http_timeout_sec", 0)
	v.SetDefault("retry_max_attempts", 1)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("addr", "127.0.0.1:8501")
	v.SetDefault("session_secret", "")
	v.SetDefault("max_upload_mb", 200)
	v.SetDefault("max_display_rows", 1000)
	v.SetDefault("default_plot_height", 500)
	v.SetDefault("chart_theme", "white")
	v.SetDefault("csv_delimiter", ",")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
}

// Dir returns ~/.datadash.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".datadash"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.datadash/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
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
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from defaults, the config file, a .env file in the
// working directory and the environment.
// Precedence: env > config file > defaults. CLI flags are applied by callers.
func Load(cfgFile string) (*Global, error) {
	// A missing .env is not an error.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("DATADASH")
	v.AutomaticEnv()
	if err := v.BindEnv("api_key", "DATADASH_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
