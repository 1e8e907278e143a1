package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/effluent-cli/internal/utils"
)

const dirName = ".effluent"

// Global configuration structure.
type Global struct {
	APIKey          string  `mapstructure:"api_key" yaml:"api_key"`
	DefaultProvider string  `mapstructure:"default_provider" yaml:"default_provider"`
	DefaultModel    string  `mapstructure:"default_model" yaml:"default_model"`
	MaxTokens       int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`
	// Language the assistant answers in (e.g. "Nederlands", "English").
	Language         string `mapstructure:"language" yaml:"language"`
	PromptTokenLimit int    `mapstructure:"prompt_token_limit" yaml:"prompt_token_limit"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Provider endpoints
	OllamaHost    string `mapstructure:"ollama_host" yaml:"ollama_host"`
	OpenAIBaseURL string `mapstructure:"openai_base_url" yaml:"openai_base_url"`

	// Analysis
	OutlierK float64 `mapstructure:"outlier_k" yaml:"outlier_k"`

	// Report rendering
	FontPath       string `mapstructure:"font_path" yaml:"font_path"`
	MonoFontPath   string `mapstructure:"mono_font_path" yaml:"mono_font_path"`
	ReportFilename string `mapstructure:"report_filename" yaml:"report_filename"`

	// Web shell
	ListenAddr    string `mapstructure:"listen_addr" yaml:"listen_addr"`
	UploadMaxMB   int    `mapstructure:"upload_max_mb" yaml:"upload_max_mb"`
	SessionTTLMin int    `mapstructure:"session_ttl_min" yaml:"session_ttl_min"`

	// Logging
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	LogFile  string `mapstructure:"log_file" yaml:"log_file"`
}

// Dir returns ~/.effluent.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.effluent/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("EFFLUENT")
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		// an explicit config file must exist
		if _, err := os.Stat(cfgFile); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.FontPath = utils.ExpandHome(c.FontPath)
	c.MonoFontPath = utils.ExpandHome(c.MonoFontPath)
	c.LogFile = utils.ExpandHome(c.LogFile)
	return &c, nil
}

// Default returns the configuration produced by defaults alone.
func Default() *Global {
	v := viper.New()
	setDefaults(v)
	var c Global
	_ = v.Unmarshal(&c)
	return &c
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default_provider", "openrouter")
	v.SetDefault("default_model", "openai/gpt-4o-mini")
	v.SetDefault("max_tokens", 1024)
	v.SetDefault("temperature", 0.3)
	v.SetDefault("language", "Nederlands")
	v.SetDefault("prompt_token_limit", 0)
	// one attempt: a failed narrative is shown to the operator, who re-triggers it
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 1)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("openai_base_url", "")
	v.SetDefault("outlier_k", 2.0)
	v.SetDefault("font_path", "DejaVuSans.ttf")
	v.SetDefault("mono_font_path", "")
	v.SetDefault("report_filename", "afvalwater_rapport.pdf")
	v.SetDefault("listen_addr", "127.0.0.1:8501")
	v.SetDefault("upload_max_mb", 50)
	v.SetDefault("session_ttl_min", 60)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
}
