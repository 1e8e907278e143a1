package narrative

import (
	"context"
	"errors"
	"time"

	"github.com/KaramelBytes/effluent-cli/internal/ai"
	"github.com/KaramelBytes/effluent-cli/internal/logging"
	"github.com/KaramelBytes/effluent-cli/internal/utils"
)

// Requestor obtains one narrative per call. Implementations never panic and
// never return a bare error: failures are carried in Response.Err.
type Requestor interface {
	Request(ctx context.Context, kind Kind, p Payload) Response
}

// RequestorFunc adapts a function to Requestor.
type RequestorFunc func(ctx context.Context, kind Kind, p Payload) Response

func (f RequestorFunc) Request(ctx context.Context, kind Kind, p Payload) Response {
	return f(ctx, kind, p)
}

// Options configures an LLM-backed requestor.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Language    string
	// PromptTokenLimit truncates the user message; 0 disables truncation.
	PromptTokenLimit int
}

// LLM sends prompts to an ai.Runtime, one synchronous call per request.
type LLM struct {
	rt  ai.Runtime
	opt Options
}

// New returns a Requestor backed by rt.
func New(rt ai.Runtime, opt Options) *LLM {
	if opt.Language == "" {
		opt.Language = DefaultLanguage
	}
	return &LLM{rt: rt, opt: opt}
}

// Request builds the prompt for kind, calls the runtime once and wraps the
// outcome.
func (l *LLM) Request(ctx context.Context, kind Kind, p Payload) (resp Response) {
	resp = Response{Kind: kind, Column: p.Column}
	defer func() {
		if r := recover(); r != nil {
			resp.Text = ""
			resp.Err = &TransportError{Kind: kind, Cause: errors.New("unexpected failure in transport")}
			logging.Component("narrative").Error().Str("kind", kind.String()).Interface("panic", r).Msg("recovered")
		}
	}()
	if l == nil || l.rt == nil {
		resp.Err = &TransportError{Kind: kind, Cause: errors.New("no language model configured")}
		return resp
	}
	if p.Language == "" {
		p.Language = l.opt.Language
	}
	system, user := BuildPrompt(kind, p)
	if l.opt.PromptTokenLimit > 0 && utils.CountTokens(user) > l.opt.PromptTokenLimit {
		logging.Component("narrative").Warn().Str("kind", kind.String()).
			Int("tokens", utils.CountTokens(user)).Int("limit", l.opt.PromptTokenLimit).
			Msg("prompt truncated")
		user = utils.TruncateToTokenLimit(user, l.opt.PromptTokenLimit)
	}
	logging.Component("narrative").Debug().Str("kind", kind.String()).
		Interface("tokens", utils.TokenBreakdown(map[string]string{"system": system, "user": user})).
		Msg("prompt built")

	start := time.Now()
	out, err := l.rt.Generate(ctx, ai.GenerateRequest{
		Model:       l.opt.Model,
		Messages:    []ai.Message{{Role: "system", Content: system}, {Role: "user", Content: user}},
		MaxTokens:   l.opt.MaxTokens,
		Temperature: l.opt.Temperature,
	})
	var txt string
	if err == nil {
		txt, err = out.Text()
	}
	lg := logging.Component("narrative")
	ev := lg.Info()
	if err != nil {
		ev = lg.Warn().Err(err)
	}
	ev.Str("kind", kind.String()).Str("column", p.Column).
		Dur("elapsed", time.Since(start)).Msg("narrative request")
	if err != nil {
		resp.Err = &TransportError{Kind: kind, Cause: err}
		return resp
	}
	resp.Text = txt
	return resp
}
