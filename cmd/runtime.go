package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/effluent-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/effluent-cli/internal/config"
	"github.com/KaramelBytes/effluent-cli/internal/narrative"
)

const fallbackModel = "openai/gpt-4o-mini"

type runtimeOptions struct {
	ProviderFlag string
	OllamaHost   string
	BaseURL      string
}

// apiKeyEnv lists the credential variables in lookup order.
var apiKeyEnv = []string{"EFFLUENT_API_KEY", "OPENROUTER_API_KEY", "OPENAI_API_KEY"}

func resolveAPIKey(cfg *cfgpkg.Global, provider string) string {
	order := apiKeyEnv
	if provider == ai.ProviderOpenAI {
		order = []string{"EFFLUENT_API_KEY", "OPENAI_API_KEY", "OPENROUTER_API_KEY"}
	}
	for _, name := range order {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	if cfg != nil {
		return cfg.APIKey
	}
	return ""
}

func buildRuntime(cfg *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	httpTimeout := 60 * time.Second
	retryMax := 1
	baseDelay := 500 * time.Millisecond
	maxDelay := 4 * time.Second
	if cfg != nil {
		if cfg.HTTPTimeoutSec > 0 {
			httpTimeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
		}
		if cfg.RetryMaxAttempts > 0 {
			retryMax = cfg.RetryMaxAttempts
		}
		if cfg.RetryBaseDelayMs > 0 {
			baseDelay = time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
		}
		if cfg.RetryMaxDelayMs > 0 {
			maxDelay = time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond
		}
	}

	providerName := strings.ToLower(strings.TrimSpace(opts.ProviderFlag))
	if providerName == "" && cfg != nil && cfg.DefaultProvider != "" {
		providerName = strings.ToLower(cfg.DefaultProvider)
	}
	if providerName == "" {
		providerName = ai.ProviderOpenRouter
	}
	if providerName == ai.ProviderLocal {
		providerName = ai.ProviderOllama
	}

	rc := ai.RuntimeConfig{
		HTTPTimeout: httpTimeout,
		RetryMax:    retryMax,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		APIKey:      resolveAPIKey(cfg, providerName),
		BaseURL:     strings.TrimSpace(opts.BaseURL),
	}
	if providerName == ai.ProviderOpenAI && rc.BaseURL == "" && cfg != nil {
		rc.BaseURL = cfg.OpenAIBaseURL
	}

	if providerName == ai.ProviderOllama {
		host := strings.TrimSpace(opts.OllamaHost)
		if host == "" {
			if v := os.Getenv("EFFLUENT_OLLAMA_HOST"); v != "" {
				host = v
			}
		}
		if host == "" && cfg != nil && cfg.OllamaHost != "" {
			host = cfg.OllamaHost
		}
		if host == "" {
			host = ai.DefaultOllamaHost
		}
		rc.Host = host
	}

	client, ok := ai.GetRuntime(providerName, rc)
	if !ok {
		return nil, providerName, fmt.Errorf("provider not supported: %s (use %s)", providerName, strings.Join(ai.Providers(), "|"))
	}
	return client, providerName, nil
}

func selectModel(cfg *cfgpkg.Global, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cfg != nil && cfg.DefaultModel != "" {
		return cfg.DefaultModel
	}
	return fallbackModel
}

// llmFlags are shared by every command that asks for narratives.
type llmFlags struct {
	Provider    string
	Model       string
	OllamaHost  string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Language    string
	PromptLimit int
}

func (f *llmFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.Provider, "provider", "", "AI provider: openrouter|openai|ollama (default from config)")
	fl.StringVarP(&f.Model, "model", "m", "", "model name (default from config)")
	fl.StringVar(&f.OllamaHost, "ollama-host", "", "Ollama host URL (ollama provider)")
	fl.StringVar(&f.BaseURL, "base-url", "", "override the provider API base URL")
	fl.IntVar(&f.MaxTokens, "max-tokens", 0, "maximum tokens in the reply (default from config)")
	fl.Float64Var(&f.Temperature, "temperature", -1, "sampling temperature (default from config)")
	fl.StringVar(&f.Language, "language", "", "language of the narrative (default from config)")
	fl.IntVar(&f.PromptLimit, "prompt-limit", 0, "truncate prompts to this many tokens (0 = config)")
}

// newRequestor builds the narrative requestor from config and flags.
func newRequestor(cfg *cfgpkg.Global, f llmFlags) (*narrative.LLM, string, string, error) {
	rt, provider, err := buildRuntime(cfg, runtimeOptions{ProviderFlag: f.Provider, OllamaHost: f.OllamaHost, BaseURL: f.BaseURL})
	if err != nil {
		return nil, provider, "", err
	}
	model := selectModel(cfg, f.Model)
	opt := narrative.Options{Model: model, MaxTokens: f.MaxTokens, Temperature: f.Temperature, Language: f.Language, PromptTokenLimit: f.PromptLimit}
	if cfg != nil {
		if opt.MaxTokens <= 0 {
			opt.MaxTokens = cfg.MaxTokens
		}
		if opt.Temperature < 0 {
			opt.Temperature = cfg.Temperature
		}
		if opt.Language == "" {
			opt.Language = cfg.Language
		}
		if opt.PromptTokenLimit <= 0 {
			opt.PromptTokenLimit = cfg.PromptTokenLimit
		}
	}
	if opt.Temperature < 0 {
		opt.Temperature = 0
	}
	return narrative.New(rt, opt), provider, model, nil
}
