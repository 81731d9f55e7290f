package ui

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datadash/internal/ai"
	"github.com/KaramelBytes/datadash/internal/chart"
	"github.com/KaramelBytes/datadash/internal/dataset"
	"github.com/KaramelBytes/datadash/internal/insights"
)

const exampleCSV = "num,cat\n1,a\n2,a\n3,b\n"

type fakeRuntime struct {
	text  string
	err   error
	calls int
}

func (f *fakeRuntime) Generate(_ context.Context, _ ai.GenerateRequest) (*ai.GenerateResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: f.text}}}}, nil
}

type fixture struct {
	srv  *Server
	http *httptest.Server
}

func newFixture(t *testing.T, rt ai.Runtime) *fixture {
	t.Helper()
	cfg := Config{SessionSecret: "test-secret-key-32-bytes-long!!", MaxDisplayRows: 1000}
	if rt != nil {
		cfg.Insights = insights.NewService(rt, "test-model", 1000, 0.7, nil)
	}
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &fixture{srv: srv, http: ts}
}

func (f *fixture) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func (f *fixture) get(t *testing.T, c *http.Client, path string, q url.Values) (int, string) {
	t.Helper()
	u := f.http.URL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	resp, err := c.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func (f *fixture) upload(t *testing.T, c *http.Client, name, content string) string {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(uploadField, name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := c.Post(f.http.URL+"/upload", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/", resp.Request.URL.Path, "upload redirects to the dashboard")
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func metric(v string) string {
	return `<div class="value">` + v + `</div>`
}

func TestDashboardBeforeUpload(t *testing.T) {
	f := newFixture(t, nil)
	status, body := f.get(t, f.client(t), "/", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, PageTitle)
	assert.Contains(t, body, "Please upload a CSV or Excel file to begin.")
	assert.NotContains(t, body, "Data Overview")
}

func TestUploadExampleScenario(t *testing.T) {
	f := newFixture(t, nil)
	c := f.client(t)

	body := f.upload(t, c, "example.csv", exampleCSV)
	assert.Contains(t, body, "Data Overview")
	assert.Contains(t, body, metric("3"))
	assert.Contains(t, body, metric("2"))
	assert.Contains(t, body, metric("0"))
	assert.Contains(t, body, `src="/chart?`)

	q := url.Values{}
	q.Set(paramLo+"num", "2")
	q.Set(paramHi+"num", "3")
	q.Set(paramKind, "Histogram")
	q.Set(paramColumn, "num")
	q.Set(paramBins, "5")
	q.Set(paramShowTable, "1")
	status, body := f.get(t, c, "/", q)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, metric("3"), "stats stay on the unfiltered table")
	assert.Contains(t, body, "Data Table")
	assert.Equal(t, 3, strings.Count(body, "<tr>"), "header plus two filtered rows")

	status, page := f.get(t, c, "/chart", q)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, page, "Histogram of num")
}

func TestEmptyCategorySelectionKeepsNoRows(t *testing.T) {
	f := newFixture(t, nil)
	c := f.client(t)
	f.upload(t, c, "example.csv", exampleCSV)

	q := url.Values{}
	q.Set(paramCatSeen+"cat", "1")
	q.Set(paramShowTable, "1")
	_, body := f.get(t, c, "/", q)
	assert.Equal(t, 1, strings.Count(body, "<tr>"))

	q.Add(paramCat+"cat", "b")
	_, body = f.get(t, c, "/", q)
	assert.Equal(t, 2, strings.Count(body, "<tr>"))
}

func TestUnsupportedUpload(t *testing.T) {
	f := newFixture(t, nil)
	c := f.client(t)

	f.upload(t, c, "example.csv", exampleCSV)
	body := f.upload(t, c, "notes.txt", "hello")
	assert.Contains(t, body, LoadErrorPrefix+"unsupported file format")
	assert.NotContains(t, body, "Data Overview", "a failed upload leaves no table")
	assert.NotContains(t, body, "Please upload a CSV or Excel file to begin.")

	status, _ := f.get(t, c, "/chart", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCorrelationWarning(t *testing.T) {
	f := newFixture(t, nil)
	c := f.client(t)
	f.upload(t, c, "labels.csv", "g\nx\ny\n")

	q := url.Values{paramKind: {"Correlation Matrix"}}
	_, body := f.get(t, c, "/", q)
	assert.Contains(t, body, "No numeric columns available for correlation matrix")
	assert.NotContains(t, body, `<iframe`)

	status, _ := f.get(t, c, "/chart", q)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestChartErrorShownInline(t *testing.T) {
	f := newFixture(t, nil)
	c := f.client(t)
	f.upload(t, c, "example.csv", exampleCSV)

	_, body := f.get(t, c, "/", url.Values{paramKind: {"Pie Chart"}})
	assert.Contains(t, body, "unknown chart type")

	status, _ := f.get(t, c, "/chart", url.Values{paramKind: {"Bar Chart"}, paramX: {"num"}})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSessionCookieWorksOverPlainHTTP(t *testing.T) {
	f := newFixture(t, nil)
	c := f.client(t)

	resp, err := c.Get(f.http.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	cookie := resp.Header.Get("Set-Cookie")
	require.Contains(t, cookie, cookieName+"=")
	assert.NotContains(t, cookie, "Secure")

	f.upload(t, c, "example.csv", exampleCSV)
	_, body := f.get(t, c, "/", nil)
	assert.Contains(t, body, "Data Overview", "the upload is still there on the next request")
	assert.Equal(t, 1, f.srv.sessions.Len())
}

func TestSecureCookieOption(t *testing.T) {
	srv, err := NewServer(Config{SessionSecret: "secret", SecureCookie: true})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Secure")
}

func TestSwitchingChartKindResetsColumns(t *testing.T) {
	f := newFixture(t, nil)
	c := f.client(t)
	f.upload(t, c, "example.csv", exampleCSV)

	// Scatter controls submitted with the kind switched to Bar Chart.
	q := url.Values{
		paramKind:     {"Bar Chart"},
		paramPrevKind: {"Scatter Plot"},
		paramX:        {"num"},
		paramY:        {"num"},
		paramColor:    {chart.NoneOption},
	}
	_, body := f.get(t, c, "/", q)
	assert.NotContains(t, body, `<div class="error">`)
	assert.Contains(t, body, `src="/chart?`)
	assert.Contains(t, body, `<option selected>cat</option>`)
	status, page := f.get(t, c, "/chart", q)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, page, "Bar Chart: cat vs num")

	// And back again with the Bar selection still in the form.
	q = url.Values{
		paramKind:     {"Scatter Plot"},
		paramPrevKind: {"Bar Chart"},
		paramX:        {"cat"},
		paramY:        {"num"},
	}
	_, body = f.get(t, c, "/", q)
	assert.NotContains(t, body, `<div class="error">`)
	status, page = f.get(t, c, "/chart", q)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, page, "Scatter Plot: num vs num")
}

func TestParseChartSpecKeepsColumnsForSameKind(t *testing.T) {
	q := url.Values{paramKind: {"Line Chart"}, paramPrevKind: {"Line Chart"}, paramX: {"a"}, paramY: {"b"}}
	spec, err := parseChartSpec(q)
	require.NoError(t, err)
	assert.Equal(t, "a", spec.X)
	assert.Equal(t, "b", spec.Y)

	q.Set(paramKind, "Box Plot")
	spec, err = parseChartSpec(q)
	require.NoError(t, err)
	assert.Empty(t, spec.X)
	assert.Empty(t, spec.Y)
}

func TestChartQueryPinsResolvedSpec(t *testing.T) {
	q := url.Values{paramKind: {"Histogram"}, paramPrevKind: {"Box Plot"}, paramY: {"num"}, paramShowTable: {"1"}, paramLo + "num": {"2"}}
	out := chartQuery(q, chart.Spec{Kind: chart.Histogram, Column: "num", Bins: 30})
	assert.Equal(t, url.Values{
		paramKind:       {"Histogram"},
		paramColumn:     {"num"},
		paramBins:       {"30"},
		paramLo + "num": {"2"},
	}, out)
}

func postInsights(t *testing.T, f *fixture, c *http.Client, q url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := c.PostForm(f.http.URL+"/insights", url.Values{"q": {q.Encode()}})
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestInsightsFlow(t *testing.T) {
	rt := &fakeRuntime{text: "Sales grow steadily."}
	f := newFixture(t, rt)
	c := f.client(t)
	f.upload(t, c, "example.csv", exampleCSV)

	q := url.Values{paramKind: {"Bar Chart"}}
	resp, body := postInsights(t, f, c, q)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bar Chart", resp.Request.URL.Query().Get(paramKind), "selections survive the round trip")
	assert.Contains(t, body, `<pre class="insights">Sales grow steadily.</pre>`)
	assert.Equal(t, 1, rt.calls)

	_, body = f.get(t, c, "/", nil)
	assert.Contains(t, body, "Sales grow steadily.", "the panel keeps its text across renders")
}

func TestInsightsFailureIsShown(t *testing.T) {
	f := newFixture(t, &fakeRuntime{err: errors.New("boom")})
	c := f.client(t)
	f.upload(t, c, "example.csv", exampleCSV)

	_, body := postInsights(t, f, c, nil)
	assert.Contains(t, body, `<div class="error">`+insights.ErrorPrefix+"boom</div>")
}

func TestInsightsWithoutRuntime(t *testing.T) {
	f := newFixture(t, nil)
	c := f.client(t)
	f.upload(t, c, "example.csv", exampleCSV)

	_, body := postInsights(t, f, c, nil)
	assert.Contains(t, body, insights.ErrorPrefix)
}

func TestSessionsAreIsolated(t *testing.T) {
	f := newFixture(t, nil)
	a, b := f.client(t), f.client(t)

	f.upload(t, a, "example.csv", exampleCSV)
	_, body := f.get(t, b, "/", nil)
	assert.Contains(t, body, "Please upload a CSV or Excel file to begin.")
	_, body = f.get(t, a, "/", nil)
	assert.Contains(t, body, "Data Overview")
	assert.Equal(t, 2, f.srv.sessions.Len())
}

func TestRecovererRendersErrorPage(t *testing.T) {
	srv, err := NewServer(Config{SessionSecret: "secret"})
	require.NoError(t, err)
	h := srv.recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "An unexpected error occurred")
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, nil)
	status, body := f.get(t, f.client(t), "/healthz", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body)
}

func TestParseSelection(t *testing.T) {
	tbl, err := dataset.FromRecords("t.csv", []string{"num", "cat"}, [][]string{{"1", "a"}, {"2", "a"}, {"3", "b"}})
	require.NoError(t, err)
	ctl := dataset.BuildControls(tbl)

	sel := parseSelection(ctl, url.Values{paramLo + "num": {"oops"}, paramHi + "num": {"2"}})
	assert.Equal(t, dataset.Range{Lo: 1, Hi: 2}, sel.Ranges["num"])
	_, touched := sel.Categories["cat"]
	assert.False(t, touched)

	sel = parseSelection(ctl, url.Values{paramCatSeen + "cat": {"1"}})
	got, touched := sel.Categories["cat"]
	assert.True(t, touched)
	assert.Empty(t, got)
}

func TestApplyFiltersMarksAllWhenUntouched(t *testing.T) {
	tbl, err := dataset.FromRecords("t.csv", []string{"cat"}, [][]string{{"a"}, {"b"}})
	require.NoError(t, err)
	st, fv := applyFilters(State{Table: tbl}, url.Values{})
	assert.Equal(t, 2, st.Filtered.Rows())
	require.Len(t, fv.Multi, 1)
	assert.Equal(t, []optionView{{Value: dataset.AllOption, Selected: true}, {Value: "a"}, {Value: "b"}}, fv.Multi[0].Options)
}

func TestBuildTableTruncates(t *testing.T) {
	tbl, err := dataset.FromRecords("t.csv", []string{"n"}, [][]string{{"1"}, {"2"}, {"3"}})
	require.NoError(t, err)
	tv := buildTable(tbl, true, 2)
	assert.True(t, tv.Truncated)
	assert.Len(t, tv.Rows, 2)
	assert.Equal(t, "3", tv.Total)

	assert.False(t, buildTable(tbl, false, 2).Show)
}

func TestSessionStoreForgetsIdleSessions(t *testing.T) {
	s := NewSessionStore(time.Hour)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.Update("a", func(st State) State { st.LoadError = "x"; return st })
	now = now.Add(2 * time.Hour)
	s.Update("b", func(st State) State { return st })
	assert.Equal(t, 1, s.Len())

	got := s.Update("a", func(st State) State { return st })
	assert.Empty(t, got.LoadError, "an expired session starts over")
}
