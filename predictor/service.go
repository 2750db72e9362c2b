// Package predictor turns a questionnaire into a life expectancy estimate.
//
// Service is the application context of the web server: the trained model,
// its ordered feature list and the reference dataset are loaded once and
// never mutated, so one Service is safe for concurrent requests.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"lifecalc/dataset"
	"lifecalc/ml"
)

// Feature names the service derives from the request instead of copying
// them from the reference record.
const (
	FeatureBMI       = "BMI"
	FeatureAlcohol   = "Alcohol"
	FeatureSchooling = "Schooling"
	FeatureIncome    = "Income_Composition_Of_Resources"
	FeatureSmoking   = "Smoking_Rate"
)

var (
	ErrCountryNotFound = errors.New("country not found")
	ErrMissingData     = errors.New("missing data")
	ErrInvalidConfig   = errors.New("invalid predictor configuration")
	ErrInvalidHeight   = errors.New("height must be positive")
)

// Request is the questionnaire posted by the form.
type Request struct {
	Age       int     `json:"age"`
	Country   string  `json:"country"`
	Height    float64 `json:"height"`
	Weight    float64 `json:"weight"`
	Smoking   string  `json:"smoking"`
	Alcohol   float64 `json:"alcohol"`
	Education float64 `json:"education"`
	Income    string  `json:"income"`
}

type Result struct {
	Result          float64          `json:"result"`
	Factors         []Factor         `json:"factors"`
	Recommendations []Recommendation `json:"recommendations"`
}

func (r *Result) clone() *Result {
	return &Result{
		Result:          r.Result,
		Factors:         append([]Factor(nil), r.Factors...),
		Recommendations: append([]Recommendation(nil), r.Recommendations...),
	}
}

// FeatureVector is the ordered model input. Names always equals the
// service's trained feature list.
type FeatureVector struct {
	Names  []string
	Values []float64
}

// HistoryEntry is what the service hands to a HistoryStore per prediction.
type HistoryEntry struct {
	Request   Request   `json:"request"`
	BMI       float64   `json:"bmi"`
	Result    float64   `json:"result"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryStore keeps a log of served predictions.
type HistoryStore interface {
	SavePrediction(ctx context.Context, entry HistoryEntry) error
}

type Options struct {
	Model         ml.Predictor
	Features      []string
	Reference     *dataset.Reference
	ReferenceYear int
	// CacheSize of 0 disables the result cache.
	CacheSize int
	History   HistoryStore
	Logger    *zap.Logger
}

type Service struct {
	model     ml.Predictor
	features  []string
	reference *dataset.Reference
	year      int
	cache     *lru.Cache[Request, *Result]
	history   HistoryStore
	logger    *zap.Logger
}

// NewService checks that every trained feature can be filled from either
// the request or the reference data. A mismatch is a configuration error.
func NewService(opts Options) (*Service, error) {
	if opts.Model == nil {
		return nil, fmt.Errorf("%w: model is required", ErrInvalidConfig)
	}
	if opts.Reference == nil {
		return nil, fmt.Errorf("%w: reference data is required", ErrInvalidConfig)
	}
	if len(opts.Features) == 0 {
		return nil, fmt.Errorf("%w: feature list is empty", ErrInvalidConfig)
	}
	if n := opts.Model.FeatureCount(); n != len(opts.Features) {
		return nil, fmt.Errorf("%w: model expects %d features, feature list has %d", ErrInvalidConfig, n, len(opts.Features))
	}
	for _, name := range opts.Features {
		switch name {
		case FeatureBMI, FeatureAlcohol, FeatureSchooling:
			continue
		}
		if !opts.Reference.HasColumn(name) {
			return nil, fmt.Errorf("%w: feature %q missing from reference data", ErrInvalidConfig, name)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		model:     opts.Model,
		features:  append([]string(nil), opts.Features...),
		reference: opts.Reference,
		year:      opts.ReferenceYear,
		history:   opts.History,
		logger:    logger,
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[Request, *Result](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		s.cache = cache
	}
	return s, nil
}

// Countries lists the distinct countries of the reference data, sorted.
func (s *Service) Countries() []string {
	return s.reference.Countries()
}

// Features returns the trained feature list in model order.
func (s *Service) Features() []string {
	return append([]string(nil), s.features...)
}

func (s *Service) Predict(ctx context.Context, req Request) (*Result, error) {
	if req.Height <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidHeight, req.Height)
	}
	if s.cache != nil {
		if cached, ok := s.cache.Get(req); ok {
			s.saveHistory(ctx, req, BMI(req.Height, req.Weight), cached.Result)
			return cached.clone(), nil
		}
	}

	record, ok := s.reference.Lookup(req.Country, s.year)
	if !ok {
		return nil, fmt.Errorf("%w: %q in %d", ErrCountryNotFound, req.Country, s.year)
	}

	vector, err := s.BuildFeatureVector(req, record)
	if err != nil {
		return nil, err
	}
	raw, err := s.model.Predict(vector.Values)
	if err != nil {
		return nil, fmt.Errorf("model predict: %w", err)
	}

	bmi := BMI(req.Height, req.Weight)
	result := &Result{Result: round1(raw)}
	result.Factors, result.Recommendations = Advise(bmi, req.Smoking, req.Alcohol)

	if s.cache != nil {
		s.cache.Add(req, result.clone())
	}
	s.saveHistory(ctx, req, bmi, result.Result)
	return result, nil
}

// BuildFeatureVector assembles the model input in trained order. Derived
// features come from the request, the rest from the reference record.
func (s *Service) BuildFeatureVector(req Request, record dataset.Record) (FeatureVector, error) {
	vector := FeatureVector{
		Names:  s.Features(),
		Values: make([]float64, len(s.features)),
	}
	for i, name := range s.features {
		switch name {
		case FeatureBMI:
			vector.Values[i] = BMI(req.Height, req.Weight)
		case FeatureAlcohol:
			vector.Values[i] = AnnualAlcohol(req.Alcohol)
		case FeatureSchooling:
			vector.Values[i] = req.Education
		case FeatureIncome:
			average, ok := record.Value(FeatureIncome)
			if !ok {
				return FeatureVector{}, fmt.Errorf("%w: record lacks %q", ErrInvalidConfig, name)
			}
			vector.Values[i] = NormalizeIncome(average, req.Income)
		case FeatureSmoking:
			rate, ok := record.Value(FeatureSmoking)
			if !ok {
				return FeatureVector{}, fmt.Errorf("%w: record lacks %q", ErrInvalidConfig, name)
			}
			vector.Values[i] = SmokingScore(rate, req.Smoking)
		default:
			value, ok := record.Value(name)
			if !ok {
				return FeatureVector{}, fmt.Errorf("%w: record lacks %q", ErrInvalidConfig, name)
			}
			vector.Values[i] = value
		}
	}
	return vector, nil
}

func (s *Service) saveHistory(ctx context.Context, req Request, bmi, result float64) {
	if s.history == nil {
		return
	}
	entry := HistoryEntry{Request: req, BMI: bmi, Result: result, CreatedAt: time.Now().UTC()}
	if err := s.history.SavePrediction(ctx, entry); err != nil {
		s.logger.Warn("save prediction history", zap.String("country", req.Country), zap.Error(err))
	}
}
