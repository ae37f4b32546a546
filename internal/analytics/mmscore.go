package analytics

import (
	"math"

	"MarketLens/internal/domain/models"
)

// Weights distributes the four market-maker sub-scores. They should sum
// to 1; the score is clamped regardless.
type Weights struct {
	Symmetric         float64 `yaml:"symmetric"`
	RoundNumber       float64 `yaml:"round_number"`
	SpreadConsistency float64 `yaml:"spread_consistency"`
	QuoteFrequency    float64 `yaml:"quote_frequency"`
}

var DefaultWeights = Weights{
	Symmetric:         0.30,
	RoundNumber:       0.20,
	SpreadConsistency: 0.25,
	QuoteFrequency:    0.25,
}

// mmScore blends the four sub-scores into a [0,100] probability score.
// It needs at least one order book and one valid spread in the window;
// otherwise no score is emitted.
func (e *Engine) mmScore(b *buffer, spreads []float64, expected int) (float64, bool) {
	book := latestValidBook(b.books)
	if book == nil || len(spreads) == 0 {
		return 0, false
	}
	w := e.cfg.Weights
	s := w.Symmetric*symmetricScore(book) +
		w.RoundNumber*roundNumberScore(b.books, e.cfg.RoundIncrements) +
		w.SpreadConsistency*spreadConsistencyScore(spreads) +
		w.QuoteFrequency*quoteFrequencyScore(len(spreads), expected)
	return clamp(s*100, 0, 100), true
}

// symmetricScore is 1 minus the absolute book imbalance: a maker quoting
// both sides evenly scores near 1.
func symmetricScore(book *models.OrderBookSnapshot) float64 {
	imb, ok := bookImbalance(book)
	if !ok {
		return 0
	}
	return clamp(1-math.Abs(imb), 0, 1)
}

// roundNumberScore is the fraction of price levels across the window's
// books sitting on one of the configured round increments.
func roundNumberScore(books []models.OrderBookSnapshot, increments []float64) float64 {
	if len(increments) == 0 {
		return 0
	}
	total, round := 0, 0
	for i := range books {
		if books[i].Invalid {
			continue
		}
		for _, l := range books[i].Bids {
			total++
			if isRound(l.Price.InexactFloat64(), increments) {
				round++
			}
		}
		for _, l := range books[i].Asks {
			total++
			if isRound(l.Price.InexactFloat64(), increments) {
				round++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(round) / float64(total)
}

func isRound(price float64, increments []float64) bool {
	const eps = 1e-9
	for _, inc := range increments {
		if inc <= 0 {
			continue
		}
		r := math.Mod(price, inc)
		if r < eps || inc-r < eps {
			return true
		}
	}
	return false
}

// spreadConsistencyScore is 1 minus the coefficient of variation of the
// window's spreads, clamped to [0,1]. A single sample counts as fully
// consistent.
func spreadConsistencyScore(spreads []float64) float64 {
	if len(spreads) < 2 {
		return 1
	}
	m := mean(spreads)
	if m <= 0 {
		return 0
	}
	return clamp(1-stddev(spreads, m)/m, 0, 1)
}

// quoteFrequencyScore normalizes observed quote updates against the
// maximum expected for the window.
func quoteFrequencyScore(observed, expected int) float64 {
	if expected <= 0 {
		return 0
	}
	return clamp(float64(observed)/float64(expected), 0, 1)
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64, m float64) float64 {
	sum2 := 0.0
	for _, x := range xs {
		d := x - m
		sum2 += d * d
	}
	return math.Sqrt(sum2 / float64(len(xs)))
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
