package forecast

import (
	"sort"

	"github.com/Veraticus/finsight/internal/model"
	"github.com/shopspring/decimal"
)

// Spending forecast tuning.
const (
	// WindowMonths is the history window category patterns are drawn from.
	WindowMonths = 6
	// WindowDays is WindowMonths expressed in days for date arithmetic.
	WindowDays = 180
	// MaxPredictions caps the number of predictions returned.
	MaxPredictions = 8
)

// Prediction kinds.
const (
	KindRecurring  = "recurring"
	KindRegular    = "regular"
	KindOccasional = "occasional"
)

var confidenceRank = map[string]int{
	model.ConfidenceHigh:   3,
	model.ConfidenceMedium: 2,
	model.ConfidenceLow:    1,
}

// Spending predicts upcoming spend per category from patterns observed over
// WindowMonths. TotalPredicted covers every prediction, including those
// dropped by truncation.
func Spending(patterns []model.CategoryPattern) model.SpendingForecast {
	predictions := make([]model.SpendingPrediction, 0, len(patterns))
	total := decimal.Zero

	for _, p := range patterns {
		if p.Count <= 0 {
			continue
		}
		prediction := predict(p)
		total = total.Add(prediction.Amount)
		predictions = append(predictions, prediction)
	}

	sort.SliceStable(predictions, func(i, j int) bool {
		a, b := predictions[i], predictions[j]
		if ra, rb := confidenceRank[a.Confidence], confidenceRank[b.Confidence]; ra != rb {
			return ra > rb
		}
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.GreaterThan(b.Amount)
		}
		return a.Category < b.Category
	})

	if len(predictions) > MaxPredictions {
		predictions = predictions[:MaxPredictions]
	}

	return model.SpendingForecast{
		Predictions:    predictions,
		TotalPredicted: total,
	}
}

// DegradedSpending is the forecast returned when patterns cannot be read.
func DegradedSpending() model.SpendingForecast {
	return model.SpendingForecast{
		Predictions:    []model.SpendingPrediction{},
		TotalPredicted: decimal.Zero,
		Degraded:       true,
	}
}

func predict(p model.CategoryPattern) model.SpendingPrediction {
	avg := p.Total.Div(decimal.NewFromInt(int64(p.Count)))
	frequency := decimal.NewFromInt(int64(p.Count)).Div(decimal.NewFromInt(WindowMonths))
	freq := frequency.InexactFloat64()

	prediction := model.SpendingPrediction{
		Category:  p.Category,
		Frequency: freq,
	}

	switch {
	case freq > 3:
		prediction.Confidence = model.ConfidenceHigh
		prediction.Kind = KindRecurring
		prediction.Window = "Next 7 days"
		prediction.Amount = avg.Round(2)
	case freq >= 1:
		prediction.Confidence = model.ConfidenceMedium
		prediction.Kind = KindRegular
		prediction.Window = "This month"
		prediction.Amount = avg.Mul(frequency).Round(2)
	default:
		prediction.Confidence = model.ConfidenceLow
		prediction.Kind = KindOccasional
		prediction.Window = "Next month"
		prediction.Amount = avg.Round(2)
	}

	return prediction
}
