package http

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"lifecalc/db"
	"lifecalc/predictor"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

var (
	errCountryNotFound = errors.New("Country not found")
	errNoDatabase      = errors.New("database not configured")
	errInvalidLimit    = errors.New("limit must be an integer between 1 and 500")
)

// Predictor is the part of predictor.Service the handlers need.
type Predictor interface {
	Predict(ctx context.Context, req predictor.Request) (*predictor.Result, error)
	Countries() []string
}

// HistoryStore is the read side of the prediction and training history.
type HistoryStore interface {
	RecentPredictions(ctx context.Context, limit int) ([]predictor.HistoryEntry, error)
	LoadTrainingLog(ctx context.Context) ([]db.TrainingLog, error)
}

type Handlers struct {
	predictor Predictor
	history   HistoryStore
	metrics   *Metrics
	logger    *zap.Logger
	pages     *template.Template
	static    http.Handler
}

// NewHandlers wires the routes to p. history may be nil, in which case the
// history endpoints answer 503.
func NewHandlers(p Predictor, history HistoryStore, metrics *Metrics, logger *zap.Logger) (*Handlers, error) {
	if p == nil {
		return nil, errors.New("predictor is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	pages, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, err
	}
	return &Handlers{
		predictor: p,
		history:   history,
		metrics:   metrics,
		logger:    logger,
		pages:     pages,
		static:    http.StripPrefix("/static/", http.FileServerFS(static)),
	}, nil
}

func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("POST /predict", h.handlePredict)
	mux.HandleFunc("GET /result", h.handleResult)
	mux.HandleFunc("GET /api/countries", h.handleCountries)
	mux.HandleFunc("GET /api/history", h.handleHistory)
	mux.HandleFunc("GET /api/training/log", h.handleTrainingLog)
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.Handle("GET /static/", h.static)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, "index.html", map[string]interface{}{
		"Countries": h.predictor.Countries(),
	})
}

func (h *Handlers) handleCountries(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.predictor.Countries())
}

// handlePredict answers a malformed body with a plain 500; only an unknown
// country is reported to the client as its own error.
func (h *Handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(zap.String("request_id", GetRequestID(r.Context())))

	var req predictor.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("decode prediction request", zap.Error(err))
		h.metrics.observePrediction(outcomeBadRequest)
		respondError(w, http.StatusInternalServerError, errInternal)
		return
	}

	result, err := h.predictor.Predict(r.Context(), req)
	switch {
	case errors.Is(err, predictor.ErrCountryNotFound):
		h.metrics.observePrediction(outcomeCountryNotFound)
		respondError(w, http.StatusBadRequest, errCountryNotFound)
		return
	case err != nil:
		logger.Error("prediction failed", zap.String("country", req.Country), zap.Error(err))
		h.metrics.observePrediction(outcomeError)
		respondError(w, http.StatusInternalServerError, errInternal)
		return
	}

	h.metrics.observePrediction(outcomeOK)
	respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) handleHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, errNoDatabase)
		return
	}

	limit := defaultHistoryLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 || l > maxHistoryLimit {
			respondError(w, http.StatusBadRequest, errInvalidLimit)
			return
		}
		limit = l
	}

	entries, err := h.history.RecentPredictions(r.Context(), limit)
	if err != nil {
		h.logger.Error("load prediction history", zap.Error(err))
		respondError(w, http.StatusInternalServerError, errInternal)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"predictions": entries,
		"limit":       limit,
	})
}

func (h *Handlers) handleTrainingLog(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, errNoDatabase)
		return
	}

	logs, err := h.history.LoadTrainingLog(r.Context())
	if err != nil {
		h.logger.Error("load training log", zap.Error(err))
		respondError(w, http.StatusInternalServerError, errInternal)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs": logs,
	})
}

func (h *Handlers) handleResult(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var predicted *float64
	if value, err := strconv.ParseFloat(query.Get("predicted_life_expectancy"), 64); err == nil {
		predicted = &value
	}
	var age *int
	if value, err := strconv.Atoi(query.Get("age")); err == nil {
		age = &value
	}

	summary, err := predictor.Summarize(predicted, age)
	if err != nil {
		http.Error(w, "Missing data", http.StatusBadRequest)
		return
	}
	h.render(w, "result.html", summary)
}

func (h *Handlers) render(w http.ResponseWriter, name string, data interface{}) {
	var buf bytes.Buffer
	if err := h.pages.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error("render template", zap.String("template", name), zap.Error(err))
		http.Error(w, errInternal.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
