package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/itemizer/pkg/itemizer/tokenize"
)

// Stoplist represents a YAML stop-word list.
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stop words from a YAML file with a "terms" list, or from
// a plain file with one entry per line where blank lines and "#" comments are
// skipped.
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl Stoplist
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &sl); err != nil {
			return nil, err
		}
	default:
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			sl.Terms = append(sl.Terms, line)
		}
	}
	return &sl, nil
}

// LoadTokenizer loads tokenizer options from a YAML file over the defaults.
func LoadTokenizer(path string) (tokenize.Config, error) {
	cfg := tokenize.DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Loader reads a run file and the side files it can be combined with.
type Loader struct {
	RunPath       string
	StoplistPath  string
	TokenizerPath string
}

// Load reads all configured files and returns the merged run. Tokenizer
// options replace those of the run file; stop words are appended.
func (l *Loader) Load() (*Run, error) {
	run, err := Load(l.RunPath)
	if err != nil {
		return nil, err
	}

	if l.TokenizerPath != "" {
		tok, err := LoadTokenizer(l.TokenizerPath)
		if err != nil {
			return nil, fmt.Errorf("load tokenizer options: %w", err)
		}
		run.Tokenize = tok
	}

	if l.StoplistPath != "" {
		sl, err := LoadStoplist(l.StoplistPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		run.Tokenize.StopWords = append(run.Tokenize.StopWords, sl.Terms...)
	}

	return run, nil
}
