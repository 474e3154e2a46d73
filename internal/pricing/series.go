package pricing

import (
	"sort"
	"time"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

// ChartPoint is one bucket of the implied-probability series. Percents
// holds one value per option and sums to 100 up to rounding.
type ChartPoint struct {
	Bucket   time.Time `json:"bucket"`
	Percents []float64 `json:"percents"`
}

// PriceSeries buckets trades into one-minute intervals and emits the
// cumulative share of volume per option at each bucket. Each option's
// accumulator is seeded with one unit so the first bucket never divides
// by zero. Trades may arrive out of order; they are sorted here.
//
// The series approximates market odds from flow; it is not the
// contract's pricing curve.
func PriceSeries(trades []domain.Trade, optionCount int) []ChartPoint {
	if optionCount <= 0 {
		return nil
	}

	sorted := make([]domain.Trade, len(trades))
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	acc := make([]float64, optionCount)
	total := 0.0
	for i := range acc {
		acc[i] = 1
		total++
	}

	var points []ChartPoint
	var bucket time.Time
	open := false

	flush := func() {
		if !open {
			return
		}
		percents := make([]float64, optionCount)
		for i := range acc {
			percents[i] = acc[i] / total * 100
		}
		points = append(points, ChartPoint{Bucket: bucket, Percents: percents})
		open = false
	}

	for _, t := range sorted {
		if t.OptionIndex < 0 || t.OptionIndex >= optionCount || t.Amount <= 0 {
			continue
		}
		b := t.CreatedAt.Truncate(time.Minute)
		if open && !b.Equal(bucket) {
			flush()
		}
		if !open {
			bucket = b
			open = true
		}
		acc[t.OptionIndex] += t.Amount
		total += t.Amount
	}
	flush()

	return points
}
