package stats

import "math"

// Quartiles holds the three quartile cut points.
type Quartiles struct {
	Q1 float64 `json:"Q1"`
	Q2 float64 `json:"Q2"`
	Q3 float64 `json:"Q3"`
}

// Basic holds the central tendency and dispersion block of a Report.
type Basic struct {
	Mean              float64 `json:"mean"`
	Median            float64 `json:"median"`
	Mode              float64 `json:"mode"`
	Variance          float64 `json:"variance"`
	StandardDeviation float64 `json:"standardDeviation"`
	Range             float64 `json:"range"`
}

// Advanced holds the shape block of a Report.
type Advanced struct {
	CoefficientOfVariation float64   `json:"coefficientOfVariation"`
	Quartiles              Quartiles `json:"quartiles"`
	InterquartileRange     float64   `json:"interquartileRange"`
	Skewness               float64   `json:"skewness"`
	Kurtosis               float64   `json:"kurtosis"`
}

// Report is the statistics summary of one numeric sequence.
// All fields are zero when the sequence is empty.
type Report struct {
	Count    int      `json:"count"`
	Basic    Basic    `json:"basic"`
	Advanced Advanced `json:"advanced"`
}

// Describe computes both blocks of a Report for xs. A statistic that
// overflows float64 on finite input is reported as 0.
func Describe(xs []float64) Report {
	quartiles := QuartilesOf(xs)
	return Report{
		Count: len(xs),
		Basic: Basic{
			Mean:              finite(Mean(xs)),
			Median:            finite(Median(xs)),
			Mode:              finite(Mode(xs)),
			Variance:          finite(Variance(xs)),
			StandardDeviation: finite(StandardDeviation(xs)),
			Range:             finite(Range(xs)),
		},
		Advanced: Advanced{
			CoefficientOfVariation: finite(CoefficientOfVariation(xs)),
			Quartiles: Quartiles{
				Q1: finite(quartiles.Q1),
				Q2: finite(quartiles.Q2),
				Q3: finite(quartiles.Q3),
			},
			InterquartileRange: finite(quartiles.Q3 - quartiles.Q1),
			Skewness:           finite(Skewness(xs)),
			Kurtosis:           finite(Kurtosis(xs)),
		},
	}
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
