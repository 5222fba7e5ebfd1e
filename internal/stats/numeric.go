// Package stats holds the descriptive statistics computed over numeric
// sequences extracted from collections. Every function is total: empty or
// degenerate input yields 0 rather than an error.
package stats

import (
	"math"
	"slices"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean of xs, or 0 for an empty sequence.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// Median returns the middle value of the sorted sequence, averaging the two
// central values when the length is even.
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	median, err := mstats.Median(xs)
	if err != nil {
		return 0
	}
	return median
}

// Mode returns the most frequent value. On ties the value that first reached
// the winning frequency while scanning xs in order is returned.
func Mode(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}

	frequency := make(map[float64]int, len(xs))
	mode, maxFreq := xs[0], 0
	for _, x := range xs {
		frequency[x]++
		if frequency[x] > maxFreq {
			maxFreq = frequency[x]
			mode = x
		}
	}
	return mode
}

// Variance returns the population variance (divides by N).
func Variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	variance := stat.PopVariance(xs, nil)
	if variance < 0 {
		// Compensated summation can dip below zero on constant input.
		return 0
	}
	return variance
}

// StandardDeviation returns the population standard deviation.
func StandardDeviation(xs []float64) float64 {
	return math.Sqrt(Variance(xs))
}

// Range returns max - min.
func Range(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	lo, err := mstats.Min(xs)
	if err != nil {
		return 0
	}
	hi, err := mstats.Max(xs)
	if err != nil {
		return 0
	}
	return hi - lo
}

// CoefficientOfVariation returns stdDev/mean as a percentage, 0 when the mean is 0.
func CoefficientOfVariation(xs []float64) float64 {
	mean := Mean(xs)
	if mean == 0 {
		return 0
	}
	return StandardDeviation(xs) / mean * 100
}

// QuartilesOf splits the sorted sequence into a lower half [0, floor(n/2)) and an
// upper half [ceil(n/2), n) and takes the median of each. Q2 is the median of
// the whole sequence.
func QuartilesOf(xs []float64) Quartiles {
	sorted := slices.Clone(xs)
	slices.Sort(sorted)

	n := len(sorted)
	return Quartiles{
		Q1: Median(sorted[:n/2]),
		Q2: Median(sorted),
		Q3: Median(sorted[(n+1)/2:]),
	}
}

// InterquartileRange returns Q3 - Q1.
func InterquartileRange(xs []float64) float64 {
	q := QuartilesOf(xs)
	return q.Q3 - q.Q1
}

// Skewness returns the adjusted Fisher-Pearson coefficient. It is 0 below three
// observations or when the standard deviation is 0.
func Skewness(xs []float64) float64 {
	n := float64(len(xs))
	sd := StandardDeviation(xs)
	if len(xs) < 3 || sd == 0 {
		return 0
	}
	return n * centralMomentSum(xs, 3) / ((n - 1) * (n - 2) * math.Pow(sd, 3))
}

// Kurtosis returns the sample excess kurtosis. It is 0 below four observations
// or when the standard deviation is 0.
func Kurtosis(xs []float64) float64 {
	n := float64(len(xs))
	sd := StandardDeviation(xs)
	if len(xs) < 4 || sd == 0 {
		return 0
	}
	lead := n * (n + 1) * centralMomentSum(xs, 4) / ((n - 1) * (n - 2) * (n - 3) * math.Pow(sd, 4))
	correction := 3 * (n - 1) * (n - 1) / ((n - 2) * (n - 3))
	return lead - correction
}

// centralMomentSum returns Σ(x-mean)^k.
func centralMomentSum(xs []float64, k float64) float64 {
	mean := Mean(xs)
	deviations := make([]float64, len(xs))
	for i, x := range xs {
		deviations[i] = math.Pow(x-mean, k)
	}
	return floats.Sum(deviations)
}
