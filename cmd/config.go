package cmd

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/effluent-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/effluent-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set Effluent configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		showConfig(cmd.OutOrStdout(), cfg)
		return nil
	},
}

func showConfig(w io.Writer, c *cfgpkg.Global) {
	fmt.Fprintf(w, "api_key: %s\n", mask(c.APIKey))
	fmt.Fprintf(w, "default_provider: %s\n", c.DefaultProvider)
	fmt.Fprintf(w, "default_model: %s\n", c.DefaultModel)
	fmt.Fprintf(w, "max_tokens: %d\n", c.MaxTokens)
	fmt.Fprintf(w, "temperature: %.3f\n", c.Temperature)
	fmt.Fprintf(w, "language: %s\n", c.Language)
	if c.PromptTokenLimit > 0 {
		fmt.Fprintf(w, "prompt_token_limit: %d\n", c.PromptTokenLimit)
	}
	fmt.Fprintf(w, "http_timeout_sec: %d\n", c.HTTPTimeoutSec)
	fmt.Fprintf(w, "retry_max_attempts: %d\n", c.RetryMaxAttempts)
	fmt.Fprintf(w, "retry_base_delay_ms: %d\n", c.RetryBaseDelayMs)
	fmt.Fprintf(w, "retry_max_delay_ms: %d\n", c.RetryMaxDelayMs)
	fmt.Fprintf(w, "ollama_host: %s\n", c.OllamaHost)
	if c.OpenAIBaseURL != "" {
		fmt.Fprintf(w, "openai_base_url: %s\n", c.OpenAIBaseURL)
	}
	fmt.Fprintf(w, "outlier_k: %g\n", c.OutlierK)
	fmt.Fprintf(w, "font_path: %s\n", c.FontPath)
	if c.MonoFontPath != "" {
		fmt.Fprintf(w, "mono_font_path: %s\n", c.MonoFontPath)
	}
	fmt.Fprintf(w, "report_filename: %s\n", c.ReportFilename)
	fmt.Fprintf(w, "listen_addr: %s\n", c.ListenAddr)
	fmt.Fprintf(w, "upload_max_mb: %d\n", c.UploadMaxMB)
	fmt.Fprintf(w, "session_ttl_min: %d\n", c.SessionTTLMin)
	fmt.Fprintf(w, "log_level: %s\n", c.LogLevel)
	if c.LogFile != "" {
		fmt.Fprintf(w, "log_file: %s\n", c.LogFile)
	}
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := setConfigValue(cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Saved config\n", okMark())
		return nil
	},
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	intVal := func(dst *int, min int) error {
		i, err := strconv.Atoi(val)
		if err != nil || i < min {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		*dst = i
		return nil
	}
	floatVal := func(dst *float64, positive bool) error {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 || (positive && f == 0) {
			return fmt.Errorf("invalid float for %s: %v", key, val)
		}
		*dst = f
		return nil
	}

	switch key {
	case "api_key":
		c.APIKey = val
	case "default_provider":
		p := strings.ToLower(strings.TrimSpace(val))
		if p == ai.ProviderLocal {
			p = ai.ProviderOllama
		}
		if _, ok := ai.GetRuntime(p, ai.RuntimeConfig{}); !ok {
			return fmt.Errorf("invalid default_provider: %s (use %s)", val, strings.Join(ai.Providers(), "|"))
		}
		c.DefaultProvider = p
	case "default_model":
		c.DefaultModel = val
	case "max_tokens":
		return intVal(&c.MaxTokens, 1)
	case "temperature":
		return floatVal(&c.Temperature, false)
	case "language":
		c.Language = val
	case "prompt_token_limit":
		return intVal(&c.PromptTokenLimit, 0)
	case "http_timeout_sec":
		return intVal(&c.HTTPTimeoutSec, 1)
	case "retry_max_attempts":
		return intVal(&c.RetryMaxAttempts, 1)
	case "retry_base_delay_ms":
		return intVal(&c.RetryBaseDelayMs, 0)
	case "retry_max_delay_ms":
		return intVal(&c.RetryMaxDelayMs, 0)
	case "ollama_host":
		c.OllamaHost = val
	case "openai_base_url":
		c.OpenAIBaseURL = val
	case "outlier_k":
		return floatVal(&c.OutlierK, true)
	case "font_path":
		c.FontPath = val
	case "mono_font_path":
		c.MonoFontPath = val
	case "report_filename":
		c.ReportFilename = val
	case "listen_addr":
		c.ListenAddr = val
	case "upload_max_mb":
		return intVal(&c.UploadMaxMB, 1)
	case "session_ttl_min":
		return intVal(&c.SessionTTLMin, 1)
	case "log_level":
		c.LogLevel = val
	case "log_file":
		c.LogFile = val
	default:
		return fmt.Errorf("unknown key: %s (known: %s)", key, strings.Join(configKeys(), ", "))
	}
	return nil
}

func configKeys() []string {
	keys := []string{
		"api_key", "default_provider", "default_model", "max_tokens", "temperature", "language",
		"prompt_token_limit", "http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms",
		"retry_max_delay_ms", "ollama_host", "openai_base_url", "outlier_k", "font_path",
		"mono_font_path", "report_filename", "listen_addr", "upload_max_mb", "session_ttl_min",
		"log_level", "log_file",
	}
	sort.Strings(keys)
	return keys
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
