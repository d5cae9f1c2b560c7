// Package config loads itemizer run files: YAML documents declaring the input
// corpus, the named alphabets and the tree of pipeline stages, with
// ITEMIZER_* environment overrides applied on top.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/itemizer/pkg/itemizer/alphabet"
	"github.com/cognicore/itemizer/pkg/itemizer/internalerr"
	"github.com/cognicore/itemizer/pkg/itemizer/normalize"
	"github.com/cognicore/itemizer/pkg/itemizer/pipe"
	"github.com/cognicore/itemizer/pkg/itemizer/tokenize"
)

// Input formats.
const (
	FormatItemsets = "itemsets"
	FormatText     = "text"
	FormatJSONL    = "jsonl"
)

// Stage kinds.
const (
	KindFilter  = "filter"
	KindExtract = "extract"
	KindRaw     = "raw"
	KindCSV     = "csv"
	KindText    = "text"
)

// Run is a complete run file.
type Run struct {
	Input     string              `yaml:"input"`
	Format    string              `yaml:"format"`
	Separator string              `yaml:"separator"`
	Logging   LoggingConfig       `yaml:"logging"`
	Metrics   MetricsConfig       `yaml:"metrics"`
	Store     StoreConfig         `yaml:"store"`
	NLP       NLPConfig           `yaml:"nlp"`
	Normalize *normalize.Config   `yaml:"normalize"`
	Tokenize  tokenize.Config     `yaml:"tokenize"`
	Alphabets map[string]Alphabet `yaml:"alphabets"`
	Stages    []Stage             `yaml:"stages"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig names the Prometheus textfile written at the end of a run.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// StoreConfig selects where alphabets and run records are persisted.
// An empty driver disables persistence.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// NLPConfig locates the annotation server.
type NLPConfig struct {
	URL     string `yaml:"url"`
	Workers int    `yaml:"workers"`
}

// Alphabet declares a named alphabet. It is read from File or, when Stored
// is set, from the store, then optionally intersected and trimmed.
type Alphabet struct {
	File         string     `yaml:"file"`
	Stored       string     `yaml:"stored"`
	KeepN        int        `yaml:"keep_n"`
	MinFrequency int64      `yaml:"min_frequency"`
	Intersect    *Intersect `yaml:"intersect"`
}

// Intersect restricts an alphabet to the items of another named alphabet.
type Intersect struct {
	With   string `yaml:"with"`
	Policy string `yaml:"policy"`
}

// Stage is one node of the stage tree. Only filters take children.
type Stage struct {
	Kind      string  `yaml:"kind"`
	Name      string  `yaml:"name"`
	Alphabet  string  `yaml:"alphabet"`
	Translate bool    `yaml:"translate"`
	Output    string  `yaml:"output"`
	StoreAs   string  `yaml:"store_as"`
	Separator string  `yaml:"separator"`
	Labels    *bool   `yaml:"labels"`
	Stages    []Stage `yaml:"stages"`
}

// WithLabels reports whether a text stage writes labels. It defaults to true.
func (s Stage) WithLabels() bool {
	return s.Labels == nil || *s.Labels
}

// Load reads a run file (if provided) and applies environment overrides.
// Missing values get defaults.
func Load(path string) (*Run, error) {
	cfg := defaultRun()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading run file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing run file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Default returns a run with every default set and no stages.
func Default() *Run {
	return defaultRun()
}

func defaultRun() *Run {
	return &Run{
		Format:    FormatItemsets,
		Separator: " ",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		NLP: NLPConfig{
			URL:     "http://localhost:9000/",
			Workers: tokenize.DefaultWorkers,
		},
		Tokenize:  tokenize.DefaultConfig(),
		Alphabets: map[string]Alphabet{},
	}
}

// applyEnvOverrides reads ITEMIZER_* environment variables and overrides the
// corresponding fields.
func applyEnvOverrides(cfg *Run) {
	if v := os.Getenv("ITEMIZER_INPUT"); v != "" {
		cfg.Input = v
	}
	if v := os.Getenv("ITEMIZER_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("ITEMIZER_SEPARATOR"); v != "" {
		cfg.Separator = v
	}
	if v := os.Getenv("ITEMIZER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ITEMIZER_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("ITEMIZER_METRICS_TEXTFILE"); v != "" {
		cfg.Metrics.Textfile = v
	}
	if v := os.Getenv("ITEMIZER_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("ITEMIZER_STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("ITEMIZER_NLP_URL"); v != "" {
		cfg.NLP.URL = v
	}
	if v := os.Getenv("ITEMIZER_NLP_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.NLP.Workers = n
		}
	}
}

// Validate checks references between alphabets and stages.
func (r *Run) Validate() error {
	switch r.Format {
	case "", FormatItemsets, FormatText, FormatJSONL:
	default:
		return invalid("unknown input format %q", r.Format)
	}
	switch r.Store.Driver {
	case "", "sqlite", "memory":
	default:
		return invalid("unknown store driver %q", r.Store.Driver)
	}

	for name, a := range r.Alphabets {
		if (a.File == "") == (a.Stored == "") {
			return invalid("alphabet %s: exactly one of file or stored is required", name)
		}
		if a.Stored != "" && r.Store.Driver == "" {
			return invalid("alphabet %s: stored alphabets need a store", name)
		}
		if a.KeepN < 0 || a.MinFrequency < 0 {
			return invalid("alphabet %s: negative trim", name)
		}
		if a.Intersect != nil {
			if _, ok := r.Alphabets[a.Intersect.With]; !ok {
				return invalid("alphabet %s: intersect with unknown alphabet %q", name, a.Intersect.With)
			}
			if _, err := alphabet.ParseCountPolicy(a.Intersect.Policy); err != nil {
				return fmt.Errorf("%w: alphabet %s: %v", internalerr.ErrInvalidConfig, name, err)
			}
		}
	}
	for name := range r.Alphabets {
		if err := r.checkCycle(name, map[string]bool{}); err != nil {
			return err
		}
	}

	if len(r.Stages) == 0 {
		return invalid("no stages")
	}
	if err := r.validateStages(r.Stages); err != nil {
		return err
	}
	return checkNames(r.Stages, pipe.NewNamer(), map[string]bool{})
}

// checkNames rejects stage names used twice, assigning default names in the
// same order the pipeline does.
func checkNames(stages []Stage, namer *pipe.Namer, seen map[string]bool) error {
	for _, s := range stages {
		name := namer.Name(s.Kind, s.Name)
		if seen[name] {
			return invalid("duplicate stage name %q", name)
		}
		seen[name] = true
		if err := checkNames(s.Stages, namer, seen); err != nil {
			return err
		}
	}
	return nil
}

func (r *Run) checkCycle(name string, visiting map[string]bool) error {
	if visiting[name] {
		return invalid("alphabet %s: intersect cycle", name)
	}
	a := r.Alphabets[name]
	if a.Intersect == nil {
		return nil
	}
	visiting[name] = true
	defer delete(visiting, name)
	return r.checkCycle(a.Intersect.With, visiting)
}

func (r *Run) validateStages(stages []Stage) error {
	for _, s := range stages {
		switch s.Kind {
		case KindFilter, KindRaw, KindCSV:
			if _, ok := r.Alphabets[s.Alphabet]; !ok {
				return invalid("%s stage %q: unknown alphabet %q", s.Kind, s.Name, s.Alphabet)
			}
		case KindExtract:
			if s.Output == "" && s.StoreAs == "" {
				return invalid("extract stage %q: output or store_as required", s.Name)
			}
			if s.StoreAs != "" && r.Store.Driver == "" {
				return invalid("extract stage %q: store_as needs a store", s.Name)
			}
		case KindText:
		default:
			return invalid("unknown stage kind %q", s.Kind)
		}
		if s.Kind != KindExtract && s.Kind != KindFilter && s.Output == "" {
			return invalid("%s stage %q: output required", s.Kind, s.Name)
		}
		if len(s.Stages) > 0 {
			if s.Kind != KindFilter {
				return invalid("%s stage %q cannot have downstream stages", s.Kind, s.Name)
			}
			if err := r.validateStages(s.Stages); err != nil {
				return err
			}
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", internalerr.ErrInvalidConfig, fmt.Sprintf(format, args...))
}
