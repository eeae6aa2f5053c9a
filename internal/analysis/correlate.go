// Package analysis runs the fixed correlation studies over the crawled
// pull request data.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// ErrTooFewSamples is returned when a correlation has fewer than three
// observations.
var ErrTooFewSamples = errors.New("need at least 3 samples")

// Correlation is one Spearman rank-correlation result.
type Correlation struct {
	Coefficient float64 `json:"correlation"`
	PValue      float64 `json:"p_value"`
	N           int     `json:"n"`
}

// Significant reports whether the correlation clears the conventional
// α = 0.05 threshold.
func (c Correlation) Significant() bool {
	return c.PValue < 0.05
}

// Spearman computes the Spearman rank correlation between x and y:
// Pearson correlation over average ranks. The p-value uses the
// large-sample normal approximation z = r·√(n−1).
func Spearman(x, y []float64) (Correlation, error) {
	if len(x) != len(y) {
		return Correlation{}, fmt.Errorf("mismatched sample sizes: %d vs %d", len(x), len(y))
	}
	if len(x) < 3 {
		return Correlation{}, ErrTooFewSamples
	}

	r, err := stats.Pearson(ranks(x), ranks(y))
	if err != nil {
		return Correlation{}, err
	}

	n := len(x)
	z := math.Abs(r) * math.Sqrt(float64(n-1))
	p := math.Erfc(z / math.Sqrt2)

	return Correlation{Coefficient: r, PValue: p, N: n}, nil
}

// ranks assigns 1-based ranks, averaging over ties.
func ranks(data []float64) []float64 {
	n := len(data)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return data[order[a]] < data[order[b]]
	})

	ranked := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && data[order[j+1]] == data[order[i]] {
			j++
		}
		// Average rank of the tie group [i, j].
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranked[order[k]] = avg
		}
		i = j + 1
	}
	return ranked
}
