package ui

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/hlog"

	"github.com/KaramelBytes/datadash/internal/chart"
	"github.com/KaramelBytes/datadash/internal/dataset"
	"github.com/KaramelBytes/datadash/internal/insights"
	"github.com/KaramelBytes/datadash/internal/parser"
)

// LoadErrorPrefix starts the message shown when an upload cannot be loaded.
const LoadErrorPrefix = "Error loading file: "

const uploadField = "dataset"

var errNoData = errors.New("no dataset loaded")

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)
	q := r.URL.Query()

	var page pageView
	s.sessions.Update(sid, func(st State) State {
		st, page = s.buildPage(st, q)
		return st
	})

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "dashboard", page); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("render dashboard")
		s.renderError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// buildPage derives everything the dashboard shows from the session state and
// the query controls. The filtered table it computes replaces the previous one.
func (s *Server) buildPage(st State, q url.Values) (State, pageView) {
	page := pageView{
		Title:       PageTitle,
		Icon:        PageIcon,
		Layout:      PageLayout,
		MaxUploadMB: int(s.cfg.MaxUploadBytes >> 20),
		LoadError:   st.LoadError,
		Insights:    st.Insights,
	}
	if st.Table == nil {
		return st, page
	}
	page.HasData = true
	page.FileName = st.Table.Name
	page.Stats = buildStats(st.Table)
	st, page.Filters = applyFilters(st, q)
	page.Chart = s.buildChartView(st.Filtered, q)
	page.Table = buildTable(st.Filtered, isChecked(q.Get(paramShowTable)), s.cfg.MaxDisplayRows)
	page.Query = q.Encode()
	return st, page
}

func (s *Server) buildChartView(t *dataset.Table, q url.Values) chartView {
	cv := chartView{
		Kinds:       chart.Kinds,
		Numeric:     dataset.NumericColumns(t),
		Categorical: dataset.CategoricalColumns(t),
		NoneOption:  chart.NoneOption,
		MinBins:     chart.MinBins,
		MaxBins:     chart.MaxBins,
		Height:      s.cfg.PlotHeight,
	}
	if cv.Height <= 0 {
		cv.Height = 500
	}
	spec, err := parseChartSpec(q)
	if err != nil {
		cv.Spec = chart.Spec{Kind: chart.Kinds[0]}
		cv.Error = err.Error()
		return cv
	}
	cv.Spec = spec
	res, err := chart.Build(t, spec, s.chartOptions())
	if err != nil {
		cv.Error = err.Error()
		return cv
	}
	cv.Spec = res.Spec
	cv.Title = res.Title
	cv.Warning = res.Warning
	cv.Src = template.URL("/chart?" + chartQuery(q, res.Spec).Encode())
	return cv
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)
	log := hlog.FromRequest(r)
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var (
		table   *dataset.Table
		loadErr error
	)
	file, hdr, err := r.FormFile(uploadField)
	if err != nil {
		loadErr = fmt.Errorf("read upload: %w", err)
	} else {
		defer file.Close()
		table, loadErr = parser.Load(file, hdr.Filename)
	}

	s.sessions.Update(sid, func(State) State {
		if loadErr != nil {
			return State{LoadError: LoadErrorPrefix + loadErr.Error()}
		}
		return State{Table: table}
	})

	if loadErr != nil {
		log.Warn().Err(loadErr).Msg("upload rejected")
	} else {
		log.Info().Str("file", table.Name).Str("shape", table.Shape()).Msg("dataset loaded")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)
	if err := r.ParseForm(); err != nil {
		s.renderError(w, http.StatusBadRequest, err.Error())
		return
	}
	q, err := url.ParseQuery(r.PostForm.Get("q"))
	if err != nil {
		q = url.Values{}
	}

	s.sessions.Update(sid, func(st State) State {
		st.Insights = insights.Begin(st.Insights)
		st.Insights = s.cfg.Insights.Request(r.Context(), st.Insights, st.Table)
		return st
	})

	target := "/"
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// handleChart renders the chart page loaded by the dashboard iframe. It reads
// the same query as the dashboard, so filters and chart controls agree.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)
	q := r.URL.Query()

	var (
		res *chart.Result
		err error
	)
	s.sessions.Update(sid, func(st State) State {
		if st.Table == nil {
			err = errNoData
			return st
		}
		st, _ = applyFilters(st, q)
		var spec chart.Spec
		if spec, err = parseChartSpec(q); err != nil {
			return st
		}
		res, err = chart.Build(st.Filtered, spec, s.chartOptions())
		return st
	})

	switch {
	case errors.Is(err, errNoData):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case res.Warning != "":
		http.Error(w, res.Warning, http.StatusUnprocessableEntity)
		return
	}
	b, err := res.HTML()
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("render chart")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(b)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
