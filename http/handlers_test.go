package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifecalc/predictor"
)

type fakePredictor struct {
	result    *predictor.Result
	err       error
	countries []string
	last      predictor.Request
}

func (f *fakePredictor) Predict(_ context.Context, req predictor.Request) (*predictor.Result, error) {
	f.last = req
	return f.result, f.err
}

func (f *fakePredictor) Countries() []string {
	return f.countries
}

func newTestServer(t *testing.T, p Predictor) http.Handler {
	t.Helper()
	return newTestServerWithHistory(t, p, nil)
}

func newTestServerWithHistory(t *testing.T, p Predictor, history HistoryStore) http.Handler {
	t.Helper()
	metrics := NewMetrics()
	handlers, err := NewHandlers(p, history, metrics, nil)
	require.NoError(t, err)
	return NewServer(ServerConfig{Port: 0, MaxBodyBytes: 1 << 20, AllowedOrigins: []string{"*"}}, handlers, metrics, nil).Handler()
}

func TestHealthHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()

	http.HandlerFunc(handleHealth).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestIndexListsCountries(t *testing.T) {
	srv := newTestServer(t, &fakePredictor{countries: []string{"Chad", "Côte d'Ivoire", "Spain"}})

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	body := rr.Body.String()
	assert.Contains(t, body, `<option value="Chad">Chad</option>`)
	assert.Contains(t, body, "Côte d&#39;Ivoire")
	assert.Contains(t, body, `/static/app.js`)
}

func TestUnknownPathIsNotFound(t *testing.T) {
	srv := newTestServer(t, &fakePredictor{})

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCountriesEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakePredictor{countries: []string{"Chad", "Spain"}})

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/countries", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `["Chad","Spain"]`, rr.Body.String())
}

func TestStaticScript(t *testing.T) {
	srv := newTestServer(t, &fakePredictor{})

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `fetch("/predict"`)
}

func TestResult(t *testing.T) {
	srv := newTestServer(t, &fakePredictor{})

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/result?predicted_life_expectancy=80&age=40", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Years left: <strong>40.0</strong>")
	assert.Contains(t, body, "Life lived: <strong>50.0%</strong>")
}

func TestResultZeroPrediction(t *testing.T) {
	srv := newTestServer(t, &fakePredictor{})

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/result?predicted_life_expectancy=0&age=40", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Life lived: <strong>0.0%</strong>")
	assert.Contains(t, rr.Body.String(), "Years left: <strong>-40.0</strong>")
}

func TestResultMissingData(t *testing.T) {
	srv := newTestServer(t, &fakePredictor{})

	for _, query := range []string{
		"",
		"?age=40",
		"?predicted_life_expectancy=80",
		"?predicted_life_expectancy=abc&age=40",
		"?predicted_life_expectancy=80&age=40.5",
	} {
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/result"+query, nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code, query)
		assert.Equal(t, "Missing data", strings.TrimSpace(rr.Body.String()), query)
	}
}
