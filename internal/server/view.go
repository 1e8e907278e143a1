package server

import (
	"html/template"
	"net/url"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/KaramelBytes/effluent-cli/internal/analysis"
	"github.com/KaramelBytes/effluent-cli/internal/dataset"
	"github.com/KaramelBytes/effluent-cli/internal/narrative"
	"github.com/KaramelBytes/effluent-cli/internal/session"
)

var funcMap = template.FuncMap{
	"pathesc":  url.PathEscape,
	"markdown": renderMarkdown,
	"num":      analysis.FormatNumber,
}

// renderMarkdown converts narrative text to HTML. Raw HTML in the model's
// output is dropped.
func renderMarkdown(text string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.SkipHTML | html.HrefTargetBlank})
	return template.HTML(markdown.ToHTML([]byte(text), p, r))
}

type indexView struct {
	MaxMB int
	Error string
}

type columnView struct {
	Name    string
	Unit    string
	Kind    string
	Missing int
	Numeric bool
}

type narrativeView struct {
	Title    string
	Question string
	Body     template.HTML
	Failed   bool
}

type dashboardView struct {
	ID        string
	Name      string
	Rows      int
	Columns   []columnView
	Numeric   []string
	Header    []string
	Head      [][]string
	Stats     []analysis.ColumnStats
	BandWidth float64
	Anomalies []string
	Counts    map[string]int
	CorrTable string
	Warnings  []string
	Plot      string
	PlotError string
	Last      *narrativeView
	Anomaly   *narrativeView
	Flashes   []string
}

func (s *Server) dashboard(sess *session.Session, plotCol string) dashboardView {
	ds := sess.Dataset
	rep := analysis.Analyze(ds, analysis.Options{SampleRows: s.cfg.PreviewRows, BandWidth: s.cfg.BandWidth})
	v := dashboardView{
		ID:        sess.ID,
		Name:      ds.Name,
		Rows:      rep.Rows,
		Header:    ds.Names(),
		Head:      rep.Samples,
		Stats:     rep.Stats,
		BandWidth: s.cfg.BandWidth,
		Anomalies: analysis.AnomalyLines(rep.Anomalies),
		Counts:    analysis.CountByColumn(rep.Anomalies),
		Warnings:  rep.Warnings,
		Flashes:   sess.TakeFlashes(),
	}
	for _, c := range rep.Cols {
		v.Columns = append(v.Columns, columnView{
			Name: c.Name, Unit: c.Unit, Kind: string(c.Kind), Missing: c.Missing,
			Numeric: c.Kind == dataset.KindNumeric,
		})
	}
	for _, c := range ds.Numeric() {
		v.Numeric = append(v.Numeric, c.Name)
	}
	if rep.Corr != nil {
		v.CorrTable = rep.Corr.Table()
	}

	if plotCol == "" && len(v.Numeric) > 0 {
		plotCol = v.Numeric[0]
	}
	if plotCol != "" {
		if col, ok := ds.Column(plotCol); ok {
			if err := analysis.RequireNumeric(col); err != nil {
				v.PlotError = "Deze kolom bevat geen numerieke data en kan niet als grafiek worden weergegeven."
			} else {
				v.Plot = plotCol
			}
		}
	}

	if resp, question, ok := sess.Last(); ok {
		v.Last = toNarrativeView(resp)
		v.Last.Question = question
	}
	if resp, ok := sess.AnomalyNarrative(); ok {
		v.Anomaly = toNarrativeView(resp)
	}
	return v
}

func toNarrativeView(resp narrative.Response) *narrativeView {
	label := resp.Kind.Label(resp.Column)
	title := strings.ToUpper(label[:1]) + label[1:]
	if !resp.Ok() {
		return &narrativeView{Title: title, Body: template.HTML(template.HTMLEscapeString(resp.Display())), Failed: true}
	}
	return &narrativeView{Title: title, Body: renderMarkdown(resp.Text)}
}
