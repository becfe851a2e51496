package studyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/quantlab/varcast/internal/modelspec"
)

// Load reads a study YAML file and returns the Config with the raw
// bytes. KnownFields(true) makes typos and stale fields fail fast.
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, nil, err
	}

	cfg.applyDefaults()

	if err := Validate(&cfg); err != nil {
		return nil, data, err
	}

	return &cfg, data, nil
}

// Hash generates a SHA256 hash of the Config via canonical JSON.
// Structs (not maps) keep the field order deterministic, so the same
// study file always hashes to the same run fingerprint.
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// Specs expands the model axes into the full cross product of
// estimable specifications.
func (c *Config) Specs() []modelspec.Spec {
	means := make([]modelspec.MeanType, 0, len(c.Models.Means))
	for _, m := range c.Models.Means {
		means = append(means, modelspec.MeanType(m))
	}
	variances := make([]modelspec.VarianceType, 0, len(c.Models.Variances))
	for _, v := range c.Models.Variances {
		variances = append(variances, modelspec.VarianceType(v))
	}
	dists := make([]modelspec.DistType, 0, len(c.Models.Distributions))
	for _, d := range c.Models.Distributions {
		dists = append(dists, modelspec.DistType(d))
	}

	return modelspec.Enumerate(means, variances, dists,
		c.Models.ARLags, c.Models.ArchP, c.Models.GarchQ, c.Models.FigarchTruncation)
}

func (c *Config) applyDefaults() {
	if c.Significance == 0 {
		c.Significance = 0.05
	}
	if len(c.ConfidenceLevels) == 0 {
		c.ConfidenceLevels = []float64{0.01, 0.05}
	}
	if c.Window.Policy == "" {
		c.Window.Policy = "rolling"
	}
	if c.Models.ARLags == 0 {
		c.Models.ARLags = 1
	}
	if c.Models.ArchP == 0 {
		c.Models.ArchP = 1
	}
	if c.Models.GarchQ == 0 {
		c.Models.GarchQ = 1
	}
	if c.Models.FigarchTruncation == 0 {
		c.Models.FigarchTruncation = modelspec.DefaultFIGARCHTruncation
	}
	if c.Estimation.MaxIterations == 0 {
		c.Estimation.MaxIterations = 2000
	}
	if c.Output.Format == "" {
		c.Output.Format = "xlsx"
	}
	for i := range c.Series {
		if c.Series[i].Column == "" {
			c.Series[i].Column = "return"
		}
	}
}
