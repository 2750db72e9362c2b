package predictor

const (
	FactorPositive = "positive"
	FactorNegative = "negative"
)

type Factor struct {
	Type  string `json:"type"`
	Title string `json:"title"`
}

type Recommendation struct {
	Title string `json:"title"`
}

const (
	bmiLowerBound   = 18.5
	bmiUpperBound   = 24.9
	alcoholHighMark = 7
)

// Advise runs three independent checks. Each adds exactly one factor and
// at most one recommendation.
func Advise(bmi float64, smoking string, weeklyAlcohol float64) ([]Factor, []Recommendation) {
	factors := make([]Factor, 0, 3)
	recommendations := make([]Recommendation, 0, 3)

	switch {
	case bmi < bmiLowerBound:
		factors = append(factors, Factor{Type: FactorNegative, Title: "Low BMI"})
		recommendations = append(recommendations, Recommendation{Title: "Improve Nutrition"})
	case bmi <= bmiUpperBound:
		factors = append(factors, Factor{Type: FactorPositive, Title: "Healthy BMI"})
	default:
		factors = append(factors, Factor{Type: FactorNegative, Title: "High BMI"})
		recommendations = append(recommendations, Recommendation{Title: "Weight Management"})
	}

	if smoking != SmokingNone {
		factors = append(factors, Factor{Type: FactorNegative, Title: "Smoking"})
		recommendations = append(recommendations, Recommendation{Title: "Quit Smoking"})
	} else {
		factors = append(factors, Factor{Type: FactorPositive, Title: "Non-Smoker"})
	}

	if weeklyAlcohol > alcoholHighMark {
		factors = append(factors, Factor{Type: FactorNegative, Title: "High Alcohol Intake"})
		recommendations = append(recommendations, Recommendation{Title: "Reduce Alcohol"})
	} else {
		factors = append(factors, Factor{Type: FactorPositive, Title: "Moderate Alcohol Intake"})
	}

	return factors, recommendations
}
