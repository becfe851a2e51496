package studyconfig

import (
	"fmt"
	"path/filepath"
)

// ValidationError aborts the study before any estimation starts.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning flags a recommended-but-not-required constraint.
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints.
func Validate(cfg *Config) error {
	if cfg.StudyID == "" {
		return ValidationError{"study_id", "required"}
	}
	if cfg.Significance <= 0 || cfg.Significance >= 1 {
		return ValidationError{"significance", "must be in (0, 1)"}
	}

	if len(cfg.ConfidenceLevels) == 0 {
		return ValidationError{"confidence_levels", "required"}
	}
	for i, lvl := range cfg.ConfidenceLevels {
		if lvl <= 0 || lvl >= 1 {
			return ValidationError{
				Field:   fmt.Sprintf("confidence_levels[%d]", i),
				Message: "must be in (0, 1)",
			}
		}
	}

	switch cfg.Window.Policy {
	case "rolling", "expanding":
	default:
		return ValidationError{"window.policy", "must be rolling or expanding"}
	}
	if cfg.Window.Size <= 0 {
		return ValidationError{"window.size", "must be > 0"}
	}

	if len(cfg.Series) == 0 {
		return ValidationError{"series", "at least one series required"}
	}
	for i, s := range cfg.Series {
		if s.Name == "" {
			return ValidationError{fmt.Sprintf("series[%d].name", i), "required"}
		}
		if s.File == "" {
			return ValidationError{fmt.Sprintf("series[%d].file", i), "required"}
		}
		switch s.Column {
		case "price", "return":
		default:
			return ValidationError{
				Field:   fmt.Sprintf("series[%d].column", i),
				Message: "must be price or return",
			}
		}
		switch ext := filepath.Ext(s.File); ext {
		case ".csv", ".xlsx":
		default:
			return ValidationError{
				Field:   fmt.Sprintf("series[%d].file", i),
				Message: fmt.Sprintf("unsupported extension %q", ext),
			}
		}
	}

	if len(cfg.Models.Means) == 0 {
		return ValidationError{"models.means", "at least one mean model required"}
	}
	if len(cfg.Models.Variances) == 0 {
		return ValidationError{"models.variances", "at least one variance model required"}
	}
	if len(cfg.Models.Distributions) == 0 {
		return ValidationError{"models.distributions", "at least one distribution required"}
	}

	// Every combination must be an estimable spec; catching a bad tag
	// here beats failing on origin zero of a long rolling run.
	for _, spec := range cfg.Specs() {
		if err := spec.Validate(); err != nil {
			return ValidationError{"models", err.Error()}
		}
	}

	if cfg.Estimation.MaxIterations < 0 {
		return ValidationError{"estimation.max_iterations", "must be >= 0"}
	}
	if cfg.Estimation.Restarts < 0 {
		return ValidationError{"estimation.restarts", "must be >= 0"}
	}
	if cfg.Estimation.Concurrency < 0 {
		return ValidationError{"estimation.concurrency", "must be >= 0"}
	}

	switch cfg.Output.Format {
	case "xlsx", "csv":
	default:
		return ValidationError{"output.format", "must be xlsx or csv"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal).
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Window.Size < 250 {
		warnings = append(warnings, Warning{
			Code:    "SHORT_WINDOW",
			Message: "window size below one trading year: tail quantile estimates will be noisy",
		})
	}

	if n := len(cfg.Specs()) * len(cfg.Series); n > 48 {
		warnings = append(warnings, Warning{
			Code:    "LARGE_GRID",
			Message: fmt.Sprintf("%d series/spec combinations: expect a long run", n),
		})
	}

	for _, lvl := range cfg.ConfidenceLevels {
		if lvl < 0.005 {
			warnings = append(warnings, Warning{
				Code:    "EXTREME_LEVEL",
				Message: fmt.Sprintf("VaR level %.4f leaves few expected violations; coverage tests may be degenerate", lvl),
			})
		}
	}

	return warnings
}
