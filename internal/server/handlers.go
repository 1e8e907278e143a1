package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/KaramelBytes/effluent-cli/internal/analysis"
	"github.com/KaramelBytes/effluent-cli/internal/chart"
	"github.com/KaramelBytes/effluent-cli/internal/dataset"
	"github.com/KaramelBytes/effluent-cli/internal/logging"
	"github.com/KaramelBytes/effluent-cli/internal/narrative"
	"github.com/KaramelBytes/effluent-cli/internal/report"
	"github.com/KaramelBytes/effluent-cli/internal/session"
)

const uploadField = "dataset"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderTemplate(w, http.StatusOK, "index.html", indexView{MaxMB: s.cfg.UploadMaxMB})
}

func (s *Server) uploadError(w http.ResponseWriter, status int, msg string) {
	s.renderTemplate(w, status, "index.html", indexView{MaxMB: s.cfg.UploadMaxMB, Error: msg})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := int64(s.cfg.UploadMaxMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.uploadError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Bestand is groter dan %d MB.", s.cfg.UploadMaxMB))
			return
		}
		s.uploadError(w, http.StatusBadRequest, "Upload mislukt: "+err.Error())
		return
	}
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		s.uploadError(w, http.StatusBadRequest, "Kies eerst een CSV- of Excel-bestand.")
		return
	}
	defer file.Close()

	opt := s.cfg.Loader
	if sep := r.FormValue("delimiter"); sep != "" {
		opt.Delimiter = delimiterFromForm(sep)
	}
	if sheet := strings.TrimSpace(r.FormValue("sheet")); sheet != "" {
		opt.Sheet = sheet
	}
	ds, err := dataset.Load(filepath.Base(header.Filename), file, opt)
	if err != nil {
		logging.Component("server").Warn().Str("file", header.Filename).Err(err).Msg("upload rejected")
		s.uploadError(w, http.StatusUnprocessableEntity, "Kan bestand niet lezen: "+err.Error())
		return
	}
	sess := s.store.Start(ds)
	http.Redirect(w, r, "/s/"+sess.ID+"/", http.StatusSeeOther)
}

func delimiterFromForm(v string) rune {
	switch v {
	case "tab", `\t`:
		return '\t'
	case "semicolon":
		return ';'
	case "comma":
		return ','
	}
	return []rune(v)[0]
}

// session resolves {id}; on failure it writes a 404 and returns nil.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session.Session {
	sess, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.renderTemplate(w, http.StatusNotFound, "index.html", indexView{
			MaxMB: s.cfg.UploadMaxMB,
			Error: "Sessie verlopen of onbekend. Upload het bestand opnieuw.",
		})
		return nil
	}
	return sess
}

func (s *Server) back(w http.ResponseWriter, r *http.Request, sess *session.Session, anchor string) {
	target := "/s/" + sess.ID + "/"
	if anchor != "" {
		target += "#" + anchor
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	s.renderTemplate(w, http.StatusOK, "dashboard.html", s.dashboard(sess, r.URL.Query().Get("col")))
}

func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	name, err := url.PathUnescape(strings.TrimSuffix(chi.URLParam(r, "column"), ".png"))
	if err != nil {
		http.Error(w, "bad column", http.StatusBadRequest)
		return
	}
	col, err := sess.Dataset.Lookup(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	png, err := chart.LinePNG(col, chart.Options{BandWidth: s.cfg.BandWidth})
	switch {
	case errors.Is(err, analysis.ErrNonNumericColumn), errors.Is(err, chart.ErrTooFewPoints):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	sess.Do(func() {
		ds := sess.Dataset
		resp := s.req.Request(r.Context(), narrative.KindSummary, narrative.SummaryPayload(ds, analysis.Describe(ds)))
		sess.SetLast(resp, "")
	})
	s.back(w, r, sess, "narrative")
}

func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	q := strings.TrimSpace(r.FormValue("question"))
	if q == "" {
		sess.Flash("Stel eerst een vraag over de data.")
		s.back(w, r, sess, "ask")
		return
	}
	sess.Do(func() {
		ds := sess.Dataset
		resp := s.req.Request(r.Context(), narrative.KindQuestion, narrative.QuestionPayload(ds, analysis.Describe(ds), q))
		sess.SetLast(resp, q)
	})
	s.back(w, r, sess, "narrative")
}

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	sess.Do(func() {
		m, err := analysis.ComputeCorrelation(sess.Dataset)
		if err != nil {
			sess.Flash("Niet genoeg numerieke kolommen voor een correlatie-analyse.")
			return
		}
		resp := s.req.Request(r.Context(), narrative.KindCorrelation, narrative.CorrelationPayload(sess.Dataset, m))
		sess.SetLast(resp, "")
	})
	s.back(w, r, sess, "narrative")
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	name := r.FormValue("column")
	sess.Do(func() {
		col, err := sess.Dataset.Lookup(name)
		if err != nil {
			sess.Flash(fmt.Sprintf("Kolom '%s' bestaat niet.", name))
			return
		}
		if err := analysis.RequireNumeric(col); err != nil {
			sess.Flash(fmt.Sprintf("Kolom '%s' is niet numeriek en kan niet geanalyseerd worden.", name))
			return
		}
		resp := s.req.Request(r.Context(), narrative.KindColumnAdvice, narrative.AdvicePayload(sess.Dataset, analysis.DescribeColumn(col)))
		sess.SetLast(resp, "")
	})
	s.back(w, r, sess, "narrative")
}

func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	sess.Do(func() {
		anoms := analysis.DetectAllK(sess.Dataset, s.cfg.BandWidth)
		if len(anoms) == 0 {
			sess.Flash("Geen anomalieën gevonden.")
			return
		}
		resp := s.req.Request(r.Context(), narrative.KindAnomaly, narrative.AnomalyPayload(sess.Dataset, anoms, s.cfg.BandWidth))
		if err := s.store.SetAnomalyNarrative(sess.ID, resp); err != nil {
			sess.Flash("Anomalie-analyse kon niet bewaard worden: " + err.Error())
		}
	})
	s.back(w, r, sess, "anomalies")
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var (
		out []byte
		err error
	)
	sess.Do(func() {
		asm := report.NewAssembler(report.Options{
			FontPath:     s.cfg.FontPath,
			MonoFontPath: s.cfg.MonoFontPath,
			BandWidth:    s.cfg.BandWidth,
			Charts:       s.cfg.Charts,
		})
		var opts []report.BuildOption
		if resp, ok := sess.AnomalyNarrative(); ok {
			opts = append(opts, report.WithAnomalyNarrative(resp.Display()))
		}
		out, err = asm.Build(r.Context(), sess.Dataset, nil, s.req, opts...)
	})
	if err != nil {
		if errors.Is(err, report.ErrMissingResource) {
			sess.Flash("Rapport kan niet gemaakt worden: lettertype ontbreekt (" + err.Error() + ").")
		} else {
			sess.Flash("Rapport mislukt: " + err.Error())
		}
		s.back(w, r, sess, "report")
		return
	}
	w.Header().Set("Content-Type", report.MediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.cfg.ReportFilename))
	w.Header().Set("Content-Length", fmt.Sprint(len(out)))
	_, _ = io.Copy(w, bytes.NewReader(out))
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.store.End(id)
	logging.Component("server").Info().Str("session", id).Msg("session ended")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
