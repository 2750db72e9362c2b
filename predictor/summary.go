package predictor

// Summary is what the result page shows for a prediction.
type Summary struct {
	Predicted    float64
	Age          int
	YearsLeft    float64
	PercentLived float64
}

// Summarize reports years remaining and the share of the predicted lifespan
// already lived. Both inputs are required.
func Summarize(predicted *float64, age *int) (*Summary, error) {
	if predicted == nil || age == nil {
		return nil, ErrMissingData
	}

	percent := 0.0
	if *predicted > 0 {
		percent = float64(*age) / *predicted * 100
	}
	return &Summary{
		Predicted:    *predicted,
		Age:          *age,
		YearsLeft:    round1(*predicted - float64(*age)),
		PercentLived: round1(percent),
	}, nil
}
