package modelspec

import (
	"fmt"
	"strings"
)

// MeanType identifies the conditional mean specification.
type MeanType string

const (
	MeanConstant MeanType = "constant"
	MeanAR       MeanType = "ar"
	MeanARX      MeanType = "arx"
)

// VarianceType identifies the conditional variance filter.
type VarianceType string

const (
	VarGARCH   VarianceType = "garch"
	VarEGARCH  VarianceType = "egarch"
	VarFIGARCH VarianceType = "figarch"
)

// DistType identifies the standardized error distribution.
type DistType string

const (
	DistNormal  DistType = "normal"
	DistStudent DistType = "t"
	DistSkewT   DistType = "skewt"
	DistGED     DistType = "ged"
)

// DefaultFIGARCHTruncation is the lag count at which the ARCH(inf)
// representation of the FIGARCH filter is truncated.
const DefaultFIGARCHTruncation = 1000

// Spec fully determines one mean/variance/distribution combination.
// Immutable once built; the parameter vector layout and the likelihood
// form follow from it.
type Spec struct {
	Mean     MeanType
	Variance VarianceType
	Dist     DistType

	// Lag orders
	ARLags int // p for AR / ARX mean models
	ArchP  int // lags on squared residuals
	GarchQ int // lags on past variances

	// FIGARCH ARCH(inf) truncation; 0 means DefaultFIGARCHTruncation
	Truncation int
}

// Validate checks that the lag orders and type tags are consistent.
func (s Spec) Validate() error {
	switch s.Mean {
	case MeanConstant:
		if s.ARLags != 0 {
			return fmt.Errorf("constant mean takes no AR lags, got %d", s.ARLags)
		}
	case MeanAR, MeanARX:
		if s.ARLags < 1 {
			return fmt.Errorf("%s mean requires at least one AR lag", s.Mean)
		}
	default:
		return fmt.Errorf("unknown mean type %q", s.Mean)
	}

	switch s.Variance {
	case VarGARCH, VarEGARCH:
		if s.ArchP < 1 || s.GarchQ < 0 {
			return fmt.Errorf("%s requires arch order >= 1 and garch order >= 0, got (%d,%d)",
				s.Variance, s.ArchP, s.GarchQ)
		}
	case VarFIGARCH:
		// Only the (1,d,1) family is supported
		if s.ArchP > 1 || s.GarchQ > 1 {
			return fmt.Errorf("figarch supports orders up to (1,d,1), got (%d,%d)", s.ArchP, s.GarchQ)
		}
		if s.Truncation < 0 {
			return fmt.Errorf("figarch truncation must be non-negative, got %d", s.Truncation)
		}
	default:
		return fmt.Errorf("unknown variance type %q", s.Variance)
	}

	switch s.Dist {
	case DistNormal, DistStudent, DistSkewT, DistGED:
	default:
		return fmt.Errorf("unknown distribution %q", s.Dist)
	}

	return nil
}

// Label returns a compact identifier like "ar-garch-t", used for
// result keying and file naming.
func (s Spec) Label() string {
	return strings.Join([]string{string(s.Mean), string(s.Variance), string(s.Dist)}, "-")
}

// MeanLags returns the number of observations consumed as mean-model lags.
func (s Spec) MeanLags() int {
	if s.Mean == MeanConstant {
		return 0
	}
	return s.ARLags
}

// MinObservations returns the minimum series length for which
// estimation is attempted.
func (s Spec) MinObservations() int {
	// Lags plus enough residuals for the variance recursion to mean anything.
	return s.MeanLags() + 30
}

// TruncationLags returns the effective FIGARCH truncation.
func (s Spec) TruncationLags() int {
	if s.Truncation > 0 {
		return s.Truncation
	}
	return DefaultFIGARCHTruncation
}

// NeedsExogenous reports whether the spec requires an exogenous regressor series.
func (s Spec) NeedsExogenous() bool {
	return s.Mean == MeanARX
}

// Enumerate builds the cross product of the given mean, variance and
// distribution choices with shared lag orders.
func Enumerate(means []MeanType, variances []VarianceType, dists []DistType, arLags, archP, garchQ, truncation int) []Spec {
	specs := make([]Spec, 0, len(means)*len(variances)*len(dists))
	for _, m := range means {
		for _, v := range variances {
			for _, d := range dists {
				lags := arLags
				if m == MeanConstant {
					lags = 0
				}
				specs = append(specs, Spec{
					Mean:       m,
					Variance:   v,
					Dist:       d,
					ARLags:     lags,
					ArchP:      archP,
					GarchQ:     garchQ,
					Truncation: truncation,
				})
			}
		}
	}
	return specs
}
