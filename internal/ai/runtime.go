package ai

import "context"

// Runtime is a minimal interface implemented by AI backends/runtimes
// such as OpenRouter, OpenAI and local runtimes (e.g., Ollama).
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers used across the CLI for selection.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderOllama     = "ollama"
	ProviderLocal      = "local"
)
