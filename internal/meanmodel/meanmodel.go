// Package meanmodel provides the conditional mean specifications used on
// top of the variance filters: a constant mean, AR(p), and AR(p) with one
// exogenous regressor. All are pure functions of finite history and a
// parameter slice; no state is carried between calls.
package meanmodel

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/quantlab/varcast/internal/modelspec"
)

// ErrMissingExogenous is returned when an ARX model is evaluated without
// an exogenous series.
var ErrMissingExogenous = errors.New("meanmodel: arx requires an exogenous series")

// Model produces one-step-ahead conditional means.
type Model interface {
	Name() string

	// NumParams returns the number of free mean parameters.
	NumParams() int

	// Lags returns the number of return lags the model conditions on.
	Lags() int

	// Start returns parameter starting values for likelihood maximization.
	Start(returns []float64) []float64

	// At returns the conditional mean for index t, conditioning on
	// returns[t-Lags():t] (and exog[t] for ARX). t must be >= Lags().
	At(returns, exog []float64, t int, params []float64) float64
}

// New returns the mean model for the given spec.
func New(spec modelspec.Spec) (Model, error) {
	switch spec.Mean {
	case modelspec.MeanConstant:
		return Constant{}, nil
	case modelspec.MeanAR:
		return AR{P: spec.ARLags}, nil
	case modelspec.MeanARX:
		return ARX{P: spec.ARLags}, nil
	default:
		return nil, fmt.Errorf("meanmodel: unknown mean type %q", spec.Mean)
	}
}

// Residuals fills resid with returns[t] - At(t) for t in [lags, len(returns)).
// The slice is indexed from zero, so resid[i] corresponds to returns[lags+i].
func Residuals(m Model, returns, exog []float64, params []float64, resid []float64) {
	lags := m.Lags()
	for t := lags; t < len(returns); t++ {
		resid[t-lags] = returns[t] - m.At(returns, exog, t, params)
	}
}

// Constant is a single free mean parameter.
type Constant struct{}

func (Constant) Name() string   { return "constant" }
func (Constant) NumParams() int { return 1 }
func (Constant) Lags() int      { return 0 }

func (Constant) Start(returns []float64) []float64 {
	return []float64{stat.Mean(returns, nil)}
}

func (Constant) At(_, _ []float64, _ int, params []float64) float64 {
	return params[0]
}

// AR is an autoregression of order P with intercept.
// Parameters: [c, phi_1, ..., phi_P].
type AR struct {
	P int
}

func (m AR) Name() string   { return fmt.Sprintf("ar(%d)", m.P) }
func (m AR) NumParams() int { return 1 + m.P }
func (m AR) Lags() int      { return m.P }

func (m AR) Start(returns []float64) []float64 {
	start := make([]float64, 1+m.P)
	start[0] = stat.Mean(returns, nil)
	// Small positive AR coefficients are a safe neighborhood for daily returns.
	for i := 1; i <= m.P; i++ {
		start[i] = 0.05
	}
	return start
}

func (m AR) At(returns, _ []float64, t int, params []float64) float64 {
	mean := params[0]
	for i := 1; i <= m.P; i++ {
		mean += params[i] * returns[t-i]
	}
	return mean
}

// ARX is an AR(P) plus one contemporaneous exogenous regressor.
// Parameters: [c, phi_1, ..., phi_P, delta].
type ARX struct {
	P int
}

func (m ARX) Name() string   { return fmt.Sprintf("arx(%d)", m.P) }
func (m ARX) NumParams() int { return 2 + m.P }
func (m ARX) Lags() int      { return m.P }

func (m ARX) Start(returns []float64) []float64 {
	start := make([]float64, 2+m.P)
	start[0] = stat.Mean(returns, nil)
	for i := 1; i <= m.P; i++ {
		start[i] = 0.05
	}
	return start
}

func (m ARX) At(returns, exog []float64, t int, params []float64) float64 {
	mean := params[0]
	for i := 1; i <= m.P; i++ {
		mean += params[i] * returns[t-i]
	}
	mean += params[1+m.P] * exog[t]
	return mean
}
