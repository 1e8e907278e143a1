package narrative

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/effluent-cli/internal/ai"
	"github.com/KaramelBytes/effluent-cli/internal/analysis"
	"github.com/KaramelBytes/effluent-cli/internal/dataset"
)

type fakeRuntime struct {
	reply string
	err   error
	calls []ai.GenerateRequest
}

func (f *fakeRuntime) Generate(_ context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: f.reply}}}}, nil
}

type panicRuntime struct{}

func (panicRuntime) Generate(context.Context, ai.GenerateRequest) (*ai.GenerateResponse, error) {
	panic("boom")
}

func loadPlant(t *testing.T) *dataset.Dataset {
	t.Helper()
	csv := "BOD (mg/L),COD (mg/L)\n10,40\n11,44\n9,36\n12,48\n100,400\n10,40\n"
	ds, err := dataset.Load("plant.csv", strings.NewReader(csv), dataset.DefaultOptions())
	require.NoError(t, err)
	return ds
}

func TestBuildPromptSharesRoleFraming(t *testing.T) {
	ds := loadPlant(t)
	stats := analysis.Describe(ds)
	corr, err := analysis.ComputeCorrelation(ds)
	require.NoError(t, err)

	payloads := map[Kind]Payload{
		KindSummary:      SummaryPayload(ds, stats),
		KindQuestion:     QuestionPayload(ds, stats, "Is de BOD te hoog?"),
		KindCorrelation:  CorrelationPayload(ds, corr),
		KindColumnAdvice: AdvicePayload(ds, stats[0]),
		KindAnomaly:      AnomalyPayload(ds, analysis.DetectAll(ds), analysis.DefaultBandWidth),
	}
	var firstSystem string
	for kind, p := range payloads {
		system, user := BuildPrompt(kind, p)
		if firstSystem == "" {
			firstSystem = system
		}
		assert.Equal(t, firstSystem, system, "role framing differs for %s", kind)
		assert.Contains(t, user, "[DATASET]\nplant.csv", kind.String())
		assert.Contains(t, user, "[TAAK]", kind.String())
	}
	assert.Contains(t, firstSystem, "procesingenieur")
	assert.Contains(t, firstSystem, "Nederlands")

	_, user := BuildPrompt(KindQuestion, payloads[KindQuestion])
	assert.Contains(t, user, "Is de BOD te hoog?")
	assert.Contains(t, user, "[STATISTIEKEN]")

	_, user = BuildPrompt(KindAnomaly, payloads[KindAnomaly])
	assert.Contains(t, user, "BOD (mg/L), rij 4: 100")
	assert.Contains(t, user, "[ANOMALIEËN (buiten gemiddelde ± 2σ)]")

	wide := AnomalyPayload(ds, analysis.DetectAllK(ds, 1.5), 1.5)
	_, user = BuildPrompt(KindAnomaly, wide)
	assert.Contains(t, user, "[ANOMALIEËN (buiten gemiddelde ± 1.5σ)]")
	assert.NotContains(t, user, "± 2σ")

	_, user = BuildPrompt(KindCorrelation, payloads[KindCorrelation])
	assert.Contains(t, user, "1.000")

	system, _ := BuildPrompt(KindSummary, Payload{Language: "English"})
	assert.Contains(t, system, "English")
}

func TestLLMRequestSuccess(t *testing.T) {
	rt := &fakeRuntime{reply: "  De BOD-piek in rij 4 wijst op een lozing.  "}
	r := New(rt, Options{Model: "openai/gpt-4o-mini", MaxTokens: 256, Temperature: 0.3})

	resp := r.Request(context.Background(), KindAnomaly, Payload{Anomalies: []string{"BOD, rij 4: 100"}})
	require.True(t, resp.Ok())
	assert.Equal(t, "De BOD-piek in rij 4 wijst op een lozing.", resp.Text)
	assert.Equal(t, resp.Text, resp.Display())

	require.Len(t, rt.calls, 1)
	req := rt.calls[0]
	assert.Equal(t, "openai/gpt-4o-mini", req.Model)
	assert.Equal(t, 256, req.MaxTokens)
	assert.InDelta(t, 0.3, req.Temperature, 1e-12)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Contains(t, req.Messages[1].Content, "BOD, rij 4: 100")
}

func TestLLMRequestFailureIsTransportError(t *testing.T) {
	cause := &ai.AuthError{APIError: &ai.APIError{StatusCode: 401, Message: "invalid key"}}
	r := New(&fakeRuntime{err: cause}, Options{Model: "m"})

	resp := r.Request(context.Background(), KindColumnAdvice, Payload{Column: "BOD (mg/L)"})
	require.False(t, resp.Ok())
	assert.Empty(t, resp.Text)

	var te *TransportError
	require.True(t, errors.As(resp.Err, &te))
	assert.Equal(t, KindColumnAdvice, te.Kind)
	var ae *ai.AuthError
	assert.True(t, errors.As(resp.Err, &ae), "transport cause must stay reachable")

	line := resp.Display()
	assert.True(t, strings.HasPrefix(line, "[Fout bij advies voor BOD (mg/L): "), line)
	assert.Contains(t, line, "invalid key")
	assert.True(t, strings.HasSuffix(line, "]"))
}

func TestLLMRequestEmptyReplyAndPanic(t *testing.T) {
	resp := New(&fakeRuntime{reply: "   "}, Options{Model: "m"}).Request(context.Background(), KindSummary, Payload{})
	var ee *ai.EmptyResponseError
	require.True(t, errors.As(resp.Err, &ee))
	assert.Contains(t, resp.Display(), "[Fout bij samenvatting: ")

	resp = New(panicRuntime{}, Options{Model: "m"}).Request(context.Background(), KindQuestion, Payload{})
	require.Error(t, resp.Err)
	assert.Contains(t, resp.Display(), "[Fout bij vraag: ")

	var nilLLM *LLM
	resp = nilLLM.Request(context.Background(), KindCorrelation, Payload{})
	assert.Contains(t, resp.Display(), "[Fout bij correlatie-uitleg: ")
}

func TestLLMPromptTokenLimit(t *testing.T) {
	rt := &fakeRuntime{reply: "ok"}
	r := New(rt, Options{Model: "m", PromptTokenLimit: 10})
	r.Request(context.Background(), KindQuestion, Payload{Question: strings.Repeat("waarom ", 200)})
	require.Len(t, rt.calls, 1)
	assert.LessOrEqual(t, len([]rune(rt.calls[0].Messages[1].Content)), 40)
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindSummary, KindQuestion, KindCorrelation, KindColumnAdvice, KindAnomaly} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("forecast")
	assert.Error(t, err)
}

func TestRequestorFunc(t *testing.T) {
	var r Requestor = RequestorFunc(func(_ context.Context, k Kind, p Payload) Response {
		return Response{Kind: k, Column: p.Column, Text: "vast"}
	})
	assert.Equal(t, "vast", r.Request(context.Background(), KindSummary, Payload{}).Display())
}
