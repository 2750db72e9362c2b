package predictor

import (
	"math"
	"strconv"
)

// Smoking categories accepted by the form.
const (
	SmokingNone    = "none"
	SmokingLight   = "light"
	SmokingRegular = "regular"
)

// Income categories accepted by the form.
const (
	IncomeVeryLow  = "very_low"
	IncomeLow      = "low"
	IncomeMedium   = "medium"
	IncomeHigh     = "high"
	IncomeVeryHigh = "very_high"
)

const (
	// alcoholLitresPerUnit converts one weekly unit to litres of pure alcohol.
	alcoholLitresPerUnit = 0.0158
	weeksPerYear         = 52
)

var smokingMultipliers = map[string]float64{
	SmokingNone:    0.0,
	SmokingLight:   0.5,
	SmokingRegular: 1.0,
}

// SmokingMultiplier maps a smoking category to its share of the national
// smoking rate. Unknown categories count as non-smoking.
func SmokingMultiplier(category string) float64 {
	return smokingMultipliers[category]
}

// SmokingScore scales the country's smoking rate by the category.
func SmokingScore(countryRate float64, category string) float64 {
	return countryRate * SmokingMultiplier(category)
}

// AnnualAlcohol converts weekly units to yearly litres.
func AnnualAlcohol(weeklyUnits float64) float64 {
	return weeklyUnits * alcoholLitresPerUnit * weeksPerYear
}

// NormalizeIncome scales the country's average income composition index by
// the income category. The two top categories are capped at 0.9 and 0.95.
// Unknown categories get the average.
func NormalizeIncome(average float64, category string) float64 {
	switch category {
	case IncomeVeryLow:
		return average * 0.45
	case IncomeLow:
		return average * 0.75
	case IncomeMedium:
		return average
	case IncomeHigh:
		return math.Min(average*1.25, 0.9)
	case IncomeVeryHigh:
		return math.Min(average*1.55, 0.95)
	default:
		return average
	}
}

// BMI computes body-mass index from height in centimetres and weight in kilograms.
func BMI(heightCm, weightKg float64) float64 {
	metres := heightCm / 100
	return weightKg / (metres * metres)
}

// round1 rounds the exact binary value to one decimal place, ties to even.
// 72.25 is exact in binary and becomes 72.2; 72.35 sits just below the tie
// and becomes 72.3.
func round1(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(value, 'f', 1, 64), 64)
	if err != nil {
		return value
	}
	return rounded
}
