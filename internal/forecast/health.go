// Package forecast projects health scores and category spending forward.
package forecast

import (
	"fmt"
	"math"

	"github.com/Veraticus/finsight/internal/model"
)

// HorizonMonths is how many months ahead the health forecast reaches.
const HorizonMonths = 3

// Jitter draws the bounded noise added to each projected month.
type Jitter interface {
	// IntN returns a uniform integer in [0, n).
	IntN(n int) int
}

// jitterMin and jitterMax bound the noise added per month, inclusive.
const (
	jitterMin = -2
	jitterMax = 3
)

// Trend returns the average change per month across history, ordered most
// recent first. A positive value means scores have been rising.
func Trend(history []int) float64 {
	if len(history) < 2 {
		return 0
	}
	return float64(history[0]-history[len(history)-1]) / float64(len(history))
}

// TrendLabel names the direction of a trend value.
func TrendLabel(trend float64) string {
	switch {
	case trend > 0:
		return model.TrendImproving
	case trend < 0:
		return model.TrendDeclining
	default:
		return model.TrendStable
	}
}

// Health projects current forward HorizonMonths months. history holds the
// scores of previous months, most recent first.
func Health(current int, history []int, jitter Jitter) model.HealthForecast {
	trend := Trend(history)

	points := make([]model.HealthForecastPoint, 0, HorizonMonths)
	// The walk carries the unrounded value; each point truncates it.
	base := float64(current)
	for month := 1; month <= HorizonMonths; month++ {
		noise := jitterMin + jitter.IntN(jitterMax-jitterMin+1)
		raw := math.Max(0, math.Min(100, base+trend*float64(month)+float64(noise)))
		predicted := int(raw)

		points = append(points, model.HealthForecastPoint{
			Label:          fmt.Sprintf("Month %d", month),
			Month:          month,
			PredictedScore: predicted,
			Improvement:    predicted - current,
		})
		base = raw
	}

	return model.HealthForecast{
		CurrentScore: current,
		History:      append([]int(nil), history...),
		Trend:        trend,
		TrendLabel:   TrendLabel(trend),
		Points:       points,
	}
}

// Degraded is the forecast returned when history cannot be read.
func Degraded(current int) model.HealthForecast {
	return model.HealthForecast{
		CurrentScore: current,
		TrendLabel:   model.TrendStable,
		Points:       []model.HealthForecastPoint{},
		Degraded:     true,
	}
}

// Improvements projects headline metrics for a score. The savings rate
// projection is only present when the score was computed with income.
func Improvements(score model.HealthScore) model.ImprovementPredictions {
	s := float64(score.Overall)

	debt := math.Max(35-(s-50)*0.5, 15)
	emergency := math.Max(2.5, (s-30)*0.1)

	p := model.ImprovementPredictions{
		DebtToIncome: model.ImprovementPrediction{
			Current:   round1(debt),
			Predicted: round1(math.Max(debt-7, 10)),
		},
		EmergencyFund: model.ImprovementPrediction{
			Current:   round1(emergency),
			Predicted: round1(math.Min(emergency+1.5, 6)),
		},
	}

	if score.Data.Inputs.MonthlyIncome.IsPositive() {
		rate := score.Ratios.SavingsRate
		p.SavingsRate = &model.ImprovementPrediction{
			Current:   round1(rate),
			Predicted: round1(math.Min(rate+7, 25)),
		}
	}

	return p
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
