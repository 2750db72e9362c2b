package http

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifecalc/dataset"
	"lifecalc/ml"
	"lifecalc/predictor"
)

const referenceCSV = "Country,Year,Status,Adult_Mortality,Smoking_Rate,Income_Composition_Of_Resources,BMI,Alcohol,Schooling\n" +
	"Spain,2015,Developed,70,22.0,0.88,26.1,9.0,17.6\n" +
	"Spain,2014,Developed,71,23.0,0.87,26.0,9.1,17.5\n" +
	"Chad,2015,Developing,300,10.0,0.39,22.0,0.5,7.3\n" +
	"Peru,2014,Developing,110,5.0,0.73,25.0,5.5,13.4\n"

var trainedFeatures = []string{"Adult_Mortality", "Smoking_Rate", "Income_Composition_Of_Resources", "BMI", "Alcohol", "Schooling"}

// fittedService trains a small forest on rows where life expectancy falls
// with adult mortality and wires it to the reference table above.
func fittedService(t *testing.T) *predictor.Service {
	t.Helper()
	var features [][]float64
	var targets []float64
	for i := 0; i < 60; i++ {
		mortality := float64(50 + i*5)
		features = append(features, []float64{mortality, float64(i % 25), 0.4 + float64(i%5)/10, 20 + float64(i%8), float64(i % 12), 8 + float64(i%10)})
		targets = append(targets, 85-mortality/10)
	}
	forest := ml.NewRandomForest(ml.ForestOptions{NEstimators: 8, Seed: 7, Workers: 2})
	require.NoError(t, forest.Fit(features, targets))

	table, err := dataset.DecodeCSV(strings.NewReader(referenceCSV))
	require.NoError(t, err)
	reference, err := dataset.NewReference(table)
	require.NoError(t, err)

	svc, err := predictor.NewService(predictor.Options{
		Model:         forest,
		Features:      trainedFeatures,
		Reference:     reference,
		ReferenceYear: 2015,
	})
	require.NoError(t, err)
	return svc
}

func TestPredictWithTrainedForest(t *testing.T) {
	srv := newTestServer(t, fittedService(t))

	first := postPredict(t, srv, spainPayload)
	require.Equal(t, http.StatusOK, first.Code)
	second := postPredict(t, srv, spainPayload)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String(), "identical payloads give identical answers")

	var result predictor.Result
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &result))
	assert.GreaterOrEqual(t, result.Result, 55.0)
	assert.LessOrEqual(t, result.Result, 80.0)
	assert.Len(t, result.Factors, 3)

	chad := postPredict(t, srv, strings.Replace(spainPayload, "Spain", "Chad", 1))
	require.Equal(t, http.StatusOK, chad.Code)
	assert.NotEqual(t, first.Body.String(), chad.Body.String())
}

func TestPredictWithTrainedForestCountryMissingIn2015(t *testing.T) {
	srv := newTestServer(t, fittedService(t))

	rr := postPredict(t, srv, strings.Replace(spainPayload, "Spain", "Peru", 1))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"Country not found"}`, rr.Body.String())
}

func TestPredictWithTrainedForestZeroHeight(t *testing.T) {
	srv := newTestServer(t, fittedService(t))

	rr := postPredict(t, srv, strings.Replace(spainPayload, `"height":180`, `"height":0`, 1))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rr.Body.String())
}
