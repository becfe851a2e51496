package studyconfig

// Config is the full YAML description of one forecasting study: which
// return series to load, which mean/variance/distribution combinations
// to cross, the rolling window policy and the backtest settings.
type Config struct {
	StudyID          string     `yaml:"study_id" json:"study_id"`
	Significance     float64    `yaml:"significance" json:"significance"`
	ConfidenceLevels []float64  `yaml:"confidence_levels" json:"confidence_levels"`
	Window           Window     `yaml:"window" json:"window"`
	Series           []Series   `yaml:"series" json:"series"`
	Models           Models     `yaml:"models" json:"models"`
	Estimation       Estimation `yaml:"estimation" json:"estimation"`
	Output           Output     `yaml:"output" json:"output"`
}

// Window selects the estimation window policy.
type Window struct {
	Policy string `yaml:"policy" json:"policy"` // rolling | expanding
	Size   int    `yaml:"size" json:"size"`
}

// Series points at one input file of daily observations.
type Series struct {
	Name   string `yaml:"name" json:"name"`
	File   string `yaml:"file" json:"file"`
	Column string `yaml:"column" json:"column"` // price | return
	Sheet  string `yaml:"sheet,omitempty" json:"sheet,omitempty"`

	// ExogFile optionally provides the exogenous regressor series for
	// ARX specs, aligned with the return series.
	ExogFile string `yaml:"exog_file,omitempty" json:"exog_file,omitempty"`
}

// Models enumerates the specification axes to cross.
type Models struct {
	Means             []string `yaml:"means" json:"means"`
	ARLags            int      `yaml:"ar_lags" json:"ar_lags"`
	Variances         []string `yaml:"variances" json:"variances"`
	ArchP             int      `yaml:"arch_p" json:"arch_p"`
	GarchQ            int      `yaml:"garch_q" json:"garch_q"`
	FigarchTruncation int      `yaml:"figarch_truncation" json:"figarch_truncation"`
	Distributions     []string `yaml:"distributions" json:"distributions"`
}

// Estimation tunes the optimizer and the rolling run.
type Estimation struct {
	MaxIterations int  `yaml:"max_iterations" json:"max_iterations"`
	Restarts      int  `yaml:"restarts" json:"restarts"`
	WarmStart     bool `yaml:"warm_start" json:"warm_start"`
	Concurrency   int  `yaml:"concurrency" json:"concurrency"`
}

// Output controls result export.
type Output struct {
	Dir    string `yaml:"dir" json:"dir"`
	Format string `yaml:"format" json:"format"` // xlsx | csv
}
