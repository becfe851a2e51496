package estimate

import (
	"fmt"
	"math"

	"github.com/quantlab/varcast/internal/dist"
	"github.com/quantlab/varcast/internal/meanmodel"
	"github.com/quantlab/varcast/internal/modelspec"
	"github.com/quantlab/varcast/internal/variance"
)

// FittedModel is the output of one maximum-likelihood estimation.
// Immutable once returned.
type FittedModel struct {
	Spec modelspec.Spec

	// Full parameter vector: mean params, then variance params, then
	// distribution shape params.
	Params     []float64
	ParamNames []string

	// StdErrors come from the inverse numerical Hessian at the optimum;
	// NaN entries mean the information matrix was not invertible there.
	StdErrors []float64

	LogLikelihood float64

	// Resid and Variance are the in-sample mean residuals and filtered
	// conditional variance path. The first Spec.MeanLags() observations
	// of the input series are consumed as lags, so index 0 here
	// corresponds to input index MeanLags(). Pre-sample variance is
	// backcast to the sample variance of the residuals.
	Resid    []float64
	Variance []float64

	NObs      int
	FuncEvals int

	meanN int
	varN  int
	distN int
}

// MeanParams returns the mean-model slice of the parameter vector.
func (fm *FittedModel) MeanParams() []float64 {
	return fm.Params[:fm.meanN]
}

// VarParams returns the variance-filter slice of the parameter vector.
func (fm *FittedModel) VarParams() []float64 {
	return fm.Params[fm.meanN : fm.meanN+fm.varN]
}

// DistParams returns the distribution shape slice of the parameter vector.
func (fm *FittedModel) DistParams() []float64 {
	return fm.Params[fm.meanN+fm.varN:]
}

// Forecast projects the conditional mean and variance one step beyond the
// end of the series the model was fitted on. For ARX specs, exog must
// extend one element past returns.
func (fm *FittedModel) Forecast(returns, exog []float64) (mean, vari float64, err error) {
	mm, err := meanmodel.New(fm.Spec)
	if err != nil {
		return 0, 0, err
	}
	filt, err := variance.New(fm.Spec)
	if err != nil {
		return 0, 0, err
	}
	if fm.Spec.NeedsExogenous() && len(exog) <= len(returns) {
		return 0, 0, fmt.Errorf("estimate: %w", meanmodel.ErrMissingExogenous)
	}

	mean = mm.At(returns, exog, len(returns), fm.MeanParams())
	vari = filt.Forecast(fm.Resid, fm.Variance, fm.VarParams())
	return mean, vari, nil
}

// VaR translates a one-step forecast into a value-at-risk number at
// confidence level alpha, reported as a positive loss magnitude.
func (fm *FittedModel) VaR(mean, vari, alpha float64) (float64, error) {
	d, err := dist.New(fm.Spec.Dist)
	if err != nil {
		return 0, err
	}
	q, err := d.Quantile(alpha, fm.DistParams())
	if err != nil {
		return 0, err
	}
	return -(mean + q*math.Sqrt(vari)), nil
}
