package dataio

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Stats holds the descriptive statistics reported before a study run.
type Stats struct {
	N              int
	Mean           float64
	Std            float64
	Skew           float64
	ExcessKurtosis float64
	Min            float64
	Max            float64

	// Jarque-Bera normality test
	JarqueBera float64
	JBPValue   float64
}

// Describe computes descriptive statistics for a return series.
func Describe(values []float64) Stats {
	s := Stats{
		N:              len(values),
		Mean:           stat.Mean(values, nil),
		Std:            stat.StdDev(values, nil),
		Skew:           stat.Skew(values, nil),
		ExcessKurtosis: stat.ExKurtosis(values, nil),
		Min:            floats.Min(values),
		Max:            floats.Max(values),
	}

	n := float64(s.N)
	s.JarqueBera = n / 6 * (s.Skew*s.Skew + s.ExcessKurtosis*s.ExcessKurtosis/4)
	s.JBPValue = distuv.ChiSquared{K: 2}.Survival(s.JarqueBera)
	return s
}
