package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/itemizer/pkg/itemizer/internalerr"
)

const sampleRun = `input: corpus.txt
separator: ","
alphabets:
  vocab:
    file: vocab.ab
    keep_n: 100
  common:
    file: other.ab
    min_frequency: 2
    intersect:
      with: vocab
      policy: take
normalize:
  strip_html: true
stages:
  - kind: extract
    output: meta.ab
  - kind: filter
    alphabet: common
    translate: true
    stages:
      - kind: raw
        alphabet: common
        output: out.raw
      - kind: text
        output: out.txt
        labels: false
`

func writeRun(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadRun(t *testing.T) {
	run, err := Load(writeRun(t, sampleRun))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := run.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if run.Input != "corpus.txt" || run.Separator != "," {
		t.Errorf("Unexpected input settings %q %q", run.Input, run.Separator)
	}
	if run.Format != FormatItemsets || run.Logging.Level != "info" {
		t.Errorf("Defaults should survive partial files, got %q %q", run.Format, run.Logging.Level)
	}
	if len(run.Alphabets) != 2 || run.Alphabets["common"].Intersect.Policy != "take" {
		t.Errorf("Unexpected alphabets %+v", run.Alphabets)
	}
	if len(run.Stages) != 2 || len(run.Stages[1].Stages) != 2 {
		t.Fatalf("Unexpected stage tree %+v", run.Stages)
	}
	if run.Stages[1].Stages[1].WithLabels() {
		t.Error("labels: false should disable labels")
	}
	if !run.Stages[1].Stages[0].WithLabels() {
		t.Error("Labels should default to true")
	}
	if run.Normalize == nil || !run.Normalize.StripHTML || !run.Normalize.Fragments || run.Normalize.FragmentWords != 15 {
		t.Errorf("Normalize options should merge over defaults, got %+v", run.Normalize)
	}
}

func TestLoadDefaults(t *testing.T) {
	run, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if run.Separator != " " || run.NLP.URL == "" || run.Tokenize.QuoteAction != "delete" {
		t.Errorf("Unexpected defaults %+v", run)
	}
	if run.Normalize != nil {
		t.Error("Normalization should be off unless configured")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ITEMIZER_INPUT", "env.txt")
	t.Setenv("ITEMIZER_LOG_LEVEL", "debug")
	t.Setenv("ITEMIZER_NLP_WORKERS", "9")
	t.Setenv("ITEMIZER_STORE_DRIVER", "sqlite")

	run, err := Load(writeRun(t, sampleRun))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if run.Input != "env.txt" || run.Logging.Level != "debug" || run.NLP.Workers != 9 || run.Store.Driver != "sqlite" {
		t.Errorf("Environment should override the file, got %+v", run)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load("/nonexistent/run.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}
	if _, err := Load(writeRun(t, "stages: [unclosed")); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestValidateDistinctNames(t *testing.T) {
	run, err := Load(writeRun(t, "stages: [{kind: text, name: text_1, output: o}, {kind: text, output: p}, {kind: text, output: q}]\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// default names are text_0 and text_1, which collides with the explicit one
	if err := run.Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}

	run.Stages[0].Name = "custom"
	if err := run.Validate(); err != nil {
		t.Errorf("Distinct names should validate, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		run  string
	}{
		{"no stages", "alphabets: {}\n"},
		{"unknown kind", "stages: [{kind: zip, output: x}]\n"},
		{"unknown alphabet", "stages: [{kind: filter, alphabet: nope}]\n"},
		{"missing output", "alphabets: {a: {file: a.ab}}\nstages: [{kind: raw, alphabet: a}]\n"},
		{"extract without target", "stages: [{kind: extract}]\n"},
		{"children under encoder", "stages: [{kind: text, output: o, stages: [{kind: text, output: p}]}]\n"},
		{"bad policy", "alphabets: {a: {file: a.ab}, b: {file: b.ab, intersect: {with: a, policy: mix}}}\nstages: [{kind: text, output: o}]\n"},
		{"cycle", "alphabets: {a: {file: a.ab, intersect: {with: b}}, b: {file: b.ab, intersect: {with: a}}}\nstages: [{kind: text, output: o}]\n"},
		{"file and stored", "store: {driver: memory}\nalphabets: {a: {file: a.ab, stored: a}}\nstages: [{kind: text, output: o}]\n"},
		{"stored without store", "alphabets: {a: {stored: a}}\nstages: [{kind: text, output: o}]\n"},
		{"bad format", "format: xml\nstages: [{kind: text, output: o}]\n"},
		{"duplicate name", "stages: [{kind: text, name: out, output: o}, {kind: text, name: out, output: p}]\n"},
		{"name taken by default", "stages: [{kind: text, name: text_0, output: o}, {kind: text, output: p}]\n"},
		{"nested duplicate", "alphabets: {a: {file: a.ab}}\nstages: [{kind: filter, alphabet: a, name: f, stages: [{kind: text, name: f, output: o}]}]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, err := Load(writeRun(t, tt.run))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if err := run.Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
