package report

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/effluent-cli/internal/analysis"
	"github.com/KaramelBytes/effluent-cli/internal/narrative"
)

const (
	// DefaultFilename is the suggested download name.
	DefaultFilename = "afvalwater_rapport.pdf"
	// MediaType is the Content-Type of the rendered artifact.
	MediaType = "application/pdf"
	// DefaultTitle heads every report.
	DefaultTitle = "Afvalwater Analyse Rapport"
)

// Document is the layout-independent content of a report.
type Document struct {
	ID        string
	Title     string
	Source    string
	Generated time.Time
	Stats     []string // fixed-width statistics table, one line per entry
	BandWidth float64
	Anomalies []string
	// AnomalyNarrative is the persisted anomaly explanation, if any.
	AnomalyNarrative string
	Sections         []Section
	// Charts maps a section heading to a PNG plot.
	Charts map[string][]byte
}

// Section is one headed block of narrative text.
type Section struct {
	Heading string
	Lines   []string
	Failed  bool
}

// BuildDocument assembles a Document from statistics, anomalies and one
// narrative response per column. It performs no I/O.
func BuildDocument(source string, stats []analysis.ColumnStats, anoms []analysis.Anomaly, advice []narrative.Response, now time.Time) Document {
	doc := Document{
		ID:        uuid.NewString(),
		Title:     DefaultTitle,
		Source:    source,
		Generated: now,
		Stats:     splitLines(analysis.StatsTable(stats)),
		BandWidth: analysis.DefaultBandWidth,
		Anomalies: analysis.AnomalyLines(anoms),
	}
	for _, r := range advice {
		heading := r.Column
		if heading == "" {
			heading = r.Kind.String()
		}
		doc.Sections = append(doc.Sections, Section{
			Heading: heading,
			Lines:   splitLines(r.Display()),
			Failed:  !r.Ok(),
		})
	}
	return doc
}

func splitLines(s string) []string {
	s = strings.TrimRight(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
