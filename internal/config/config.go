// Package config loads the experiment sweep configuration from YAML.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/seqbench/seqbench/pkg/ops"
	"github.com/seqbench/seqbench/pkg/seq"
)

var (
	ErrNoScales     = errors.New("at least one dataset scale is required")
	ErrNoOperations = errors.New("at least one operation is required")
	ErrBadScale     = errors.New("scale needs a name and a positive sequence count")
	ErrBadRuns      = errors.New("measurement runs must be at least 1")
)

// Config is the root of the sweep configuration.
type Config struct {
	Metadata   Metadata    `yaml:"metadata"`
	Datasets   Datasets    `yaml:"datasets"`
	Operations []Operation `yaml:"operations"`
	Execution  Execution   `yaml:"execution"`
	Output     Output      `yaml:"output"`
}

type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
}

// Datasets describes the synthetic inputs shared by every experiment.
type Datasets struct {
	Seed           int64              `yaml:"seed"`
	SequenceLength int                `yaml:"sequence_length"`
	QualityProfile seq.QualityProfile `yaml:"quality_profile"`
	Scales         []Scale            `yaml:"scales"`
}

type Scale struct {
	Name      string `yaml:"name"`
	Sequences int    `yaml:"sequences"`
}

// Operation selects an operation and the backends to sweep. An empty
// backend list means every backend the operation supports.
type Operation struct {
	Name     string        `yaml:"name"`
	Backends []ops.Backend `yaml:"backends"`
	Params   Params        `yaml:"params"`
}

// Params overrides operation parameters, zero values keep defaults.
type Params struct {
	K           int     `yaml:"k"`
	Canonical   *bool   `yaml:"canonical"`
	MinLength   int     `yaml:"min_length"`
	MinQuality  float64 `yaml:"min_quality"`
	MaxPairs    int     `yaml:"max_pairs"`
	Frame       int     `yaml:"frame"`
	MinPeptide  int     `yaml:"min_peptide"`
	MaskQuality int     `yaml:"mask_quality"`
}

type Execution struct {
	Workers         int `yaml:"workers"`
	WarmupRuns      int `yaml:"warmup_runs"`
	MeasurementRuns int `yaml:"measurement_runs"`
	// CheckpointInterval is the number of completed experiments
	// between checkpoint writes.
	CheckpointInterval int  `yaml:"checkpoint_interval"`
	Validate           bool `yaml:"validate"`
}

type Output struct {
	Dir         string `yaml:"dir"`
	ResultsCSV  string `yaml:"results_csv"`
	ResultsJSON string `yaml:"results_json"`
	Checkpoint  string `yaml:"checkpoint"`
	PlanSVG     string `yaml:"plan_svg"`
}

// Default returns the configuration used when no file is given, a
// small sweep over every operation at the two smallest scales.
func Default() Config {
	return Config{
		Metadata: Metadata{
			Name:        "default-sweep",
			Description: "all operations on all supported backends",
			Version:     "1",
		},
		Datasets: Datasets{
			Seed:           42,
			SequenceLength: 150,
			QualityProfile: seq.QualityRealistic,
			Scales: []Scale{
				{Name: "tiny", Sequences: 100},
				{Name: "small", Sequences: 5000},
			},
		},
		Operations: defaultOperations(),
		Execution: Execution{
			WarmupRuns:         1,
			MeasurementRuns:    5,
			CheckpointInterval: 10,
			Validate:           true,
		},
		Output: Output{
			Dir:         "results",
			ResultsCSV:  "results.csv",
			ResultsJSON: "results.json",
			Checkpoint:  "checkpoint.json",
			PlanSVG:     "plan.svg",
		},
	}
}

// defaultOperations covers the whole registry, every backend.
func defaultOperations() []Operation {
	names := ops.DefaultRegistry(ops.DefaultParams()).Names()
	operations := make([]Operation, 0, len(names))
	for _, name := range names {
		operations = append(operations, Operation{Name: name})
	}

	return operations
}

// Load reads a YAML config file. An empty path returns the default
// configuration.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "validate config %s", path)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Datasets.SequenceLength == 0 {
		c.Datasets.SequenceLength = def.Datasets.SequenceLength
	}
	if c.Datasets.QualityProfile == "" {
		c.Datasets.QualityProfile = def.Datasets.QualityProfile
	}
	if c.Execution.MeasurementRuns == 0 {
		c.Execution.MeasurementRuns = def.Execution.MeasurementRuns
	}
	if c.Execution.CheckpointInterval == 0 {
		c.Execution.CheckpointInterval = def.Execution.CheckpointInterval
	}
	if c.Output.Dir == "" {
		c.Output = def.Output
	}
}

// Validate checks the parts a typo would silently break.
func (c Config) Validate() error {
	if len(c.Datasets.Scales) == 0 {
		return ErrNoScales
	}
	for _, s := range c.Datasets.Scales {
		if s.Name == "" || s.Sequences <= 0 {
			return errors.Wrapf(ErrBadScale, "scale %q (%d sequences)", s.Name, s.Sequences)
		}
	}
	if len(c.Operations) == 0 {
		return ErrNoOperations
	}
	if c.Execution.MeasurementRuns < 1 {
		return ErrBadRuns
	}

	return nil
}

// OpParams merges per-operation overrides onto the registry defaults.
func (o Operation) OpParams() ops.Params {
	params := ops.DefaultParams()
	if o.Params.K > 0 {
		params.K = o.Params.K
	}
	if o.Params.Canonical != nil {
		params.Canonical = *o.Params.Canonical
	}
	if o.Params.MinLength > 0 {
		params.MinLength = o.Params.MinLength
	}
	if o.Params.MinQuality > 0 {
		params.MinMeanQuality = o.Params.MinQuality
	}
	if o.Params.MaxPairs > 0 {
		params.MaxPairs = o.Params.MaxPairs
	}
	if o.Params.Frame > 0 {
		params.Frame = o.Params.Frame
	}
	if o.Params.MinPeptide > 0 {
		params.MinPeptide = o.Params.MinPeptide
	}
	if o.Params.MaskQuality > 0 {
		params.MaskQuality = o.Params.MaskQuality
	}

	return params
}
