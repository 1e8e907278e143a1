// Package report collects per-column narratives and renders the downloadable
// PDF summary.
package report

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/KaramelBytes/effluent-cli/internal/analysis"
	"github.com/KaramelBytes/effluent-cli/internal/chart"
	"github.com/KaramelBytes/effluent-cli/internal/dataset"
	"github.com/KaramelBytes/effluent-cli/internal/logging"
	"github.com/KaramelBytes/effluent-cli/internal/narrative"
)

// State is the assembler's progress through one Build.
type State int

const (
	StateIdle State = iota
	StateCollecting
	StateRendering
	StateFinalized
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	case StateRendering:
		return "rendering"
	case StateFinalized:
		return "finalized"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Options configures an Assembler.
type Options struct {
	FontPath     string
	MonoFontPath string
	// BandWidth is k in mean ± kσ for the anomaly block.
	BandWidth float64
	// Charts embeds a plot above each column section.
	Charts bool
	Now    func() time.Time
}

// BuildOption adjusts a single Build call.
type BuildOption func(*buildConfig)

type buildConfig struct {
	anomalyNarrative string
}

// WithAnomalyNarrative includes the session's anomaly explanation.
func WithAnomalyNarrative(text string) BuildOption {
	return func(c *buildConfig) { c.anomalyNarrative = text }
}

// Assembler turns a dataset into PDF bytes. One Assembler runs one Build at a
// time.
type Assembler struct {
	opt   Options
	mu    sync.Mutex
	state State
	last  *Document
}

// NewAssembler returns an idle assembler.
func NewAssembler(opt Options) *Assembler {
	if opt.BandWidth <= 0 {
		opt.BandWidth = analysis.DefaultBandWidth
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	return &Assembler{opt: opt}
}

// State reports the current state.
func (a *Assembler) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Document returns the document laid out by the most recent Build that got
// past font resolution.
func (a *Assembler) Document() (Document, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last == nil {
		return Document{}, false
	}
	return *a.last, true
}

func (a *Assembler) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// Build resolves fonts, requests one advice narrative per numeric column in
// column order, and renders the PDF. A failing narrative becomes that
// column's section text. Missing fonts fail with ErrMissingResource before
// any narrative is requested. stats may be nil, in which case they are
// computed from ds.
func (a *Assembler) Build(ctx context.Context, ds *dataset.Dataset, stats []analysis.ColumnStats, req narrative.Requestor, opts ...BuildOption) ([]byte, error) {
	var bc buildConfig
	for _, o := range opts {
		o(&bc)
	}
	logger := logging.Component("report").With().Str("dataset", ds.Name).Logger()
	a.mu.Lock()
	a.state, a.last = StateIdle, nil
	a.mu.Unlock()

	fonts, err := LoadFonts(a.opt.FontPath, a.opt.MonoFontPath)
	if err != nil {
		a.setState(StateFailed)
		logger.Warn().Err(err).Msg("report aborted before rendering")
		return nil, err
	}
	if stats == nil {
		stats = analysis.Describe(ds)
	}

	a.setState(StateCollecting)
	advice := make([]narrative.Response, 0, len(stats))
	for _, cs := range stats {
		resp := req.Request(ctx, narrative.KindColumnAdvice, narrative.AdvicePayload(ds, cs))
		resp.Column = cs.Name
		if !resp.Ok() {
			logger.Warn().Str("column", cs.Name).Err(resp.Err).Msg("column narrative failed")
		}
		advice = append(advice, resp)
	}

	doc := BuildDocument(ds.Name, stats, analysis.DetectAllK(ds, a.opt.BandWidth), advice, a.opt.Now())
	doc.BandWidth = a.opt.BandWidth
	doc.AnomalyNarrative = bc.anomalyNarrative
	if a.opt.Charts {
		doc.Charts = a.charts(ds, stats)
	}

	a.mu.Lock()
	a.last = &doc
	a.state = StateRendering
	a.mu.Unlock()
	out, err := Render(doc, fonts)
	if err != nil {
		a.setState(StateFailed)
		logger.Error().Err(err).Msg("render failed")
		return nil, err
	}
	a.setState(StateFinalized)
	logger.Info().Int("sections", len(doc.Sections)).Int("bytes", len(out)).Msg("report finalized")
	return out, nil
}

func (a *Assembler) charts(ds *dataset.Dataset, stats []analysis.ColumnStats) map[string][]byte {
	out := make(map[string][]byte, len(stats))
	for _, cs := range stats {
		col, ok := ds.Column(cs.Name)
		if !ok {
			continue
		}
		png, err := chart.LinePNG(col, chart.Options{Width: 900, Height: 300, BandWidth: a.opt.BandWidth})
		if err != nil {
			if !errors.Is(err, chart.ErrTooFewPoints) {
				logging.Component("report").Warn().Str("column", cs.Name).Err(err).Msg("chart skipped")
			}
			continue
		}
		out[cs.Name] = png
	}
	return out
}
