// Package normalize cleans raw text lines before tokenization. It removes the
// noise typical of scanned and e-book corpora: headings, footnotes, bracketed
// asides, indented blocks and inconsistent punctuation.
package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/itemizer/pkg/itemizer/itemset"
)

// Reasons a line can be dropped.
const (
	DropFragment  = "fragment"
	DropIgnored   = "ignored"
	DropNoLower   = "no_lowercase"
	DropBracketed = "bracketed"
	DropUnmatched = "unmatched_close"
	DropIndented  = "indented"
	DropTab       = "tab"
	DropEmpty     = "empty"
)

// Config controls a Normalizer.
type Config struct {
	// IgnorePatterns drops lines matching any of these expressions.
	IgnorePatterns []string `yaml:"ignore_patterns"`
	// Fragments drops short lines that do not look like prose: no period,
	// no sentence-ending character and fewer than FragmentWords words.
	Fragments     bool `yaml:"fragments"`
	FragmentWords int  `yaml:"fragment_words"`
	StripHTML     bool `yaml:"strip_html"`
	NFKC          bool `yaml:"nfkc"`
}

// DefaultConfig returns the settings used for plain-text book corpora.
func DefaultConfig() Config {
	return Config{
		IgnorePatterns: []string{"^CHAPTER"},
		Fragments:      true,
		FragmentWords:  15,
	}
}

// UnmarshalYAML decodes over DefaultConfig so omitted keys keep defaults.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type plain Config
	p := plain(DefaultConfig())
	if err := value.Decode(&p); err != nil {
		return err
	}
	*c = Config(p)
	return nil
}

// Stats counts lines in and out of a Normalizer.
type Stats struct {
	In      int64
	Out     int64
	Dropped map[string]int64
}

var (
	lowerPattern     = regexp.MustCompile(`[a-z]`)
	openPattern      = regexp.MustCompile(`^\s*[\[{(]`)
	unmatchedClosing = []*regexp.Regexp{
		regexp.MustCompile(`^[^\[]+\]$`),
		regexp.MustCompile(`^[^{]+\}$`),
		regexp.MustCompile(`^[^(]+\)$`),
	}
)

type rewrite struct {
	re   *regexp.Regexp
	repl string
}

// Applied in order.
var rewrites = []rewrite{
	{regexp.MustCompile(`\*`), ""},
	{regexp.MustCompile(`\. \. \.(?: \.)+`), "...."},
	{regexp.MustCompile(`\.\.\.\.+`), "...."},
	{regexp.MustCompile(`\. \. \.`), "..."},
	{regexp.MustCompile(`\. \.`), ".."},
	{regexp.MustCompile(`\[[^\]]*\]`), ""},
	{regexp.MustCompile(`\{[^}]*\}`), ""},
	{regexp.MustCompile(`_`), ""},
	{regexp.MustCompile(`[–−]`), "-"},
	{regexp.MustCompile(`--`), "—"},
	{regexp.MustCompile(`[”“]`), `"`},
	{regexp.MustCompile("[`´‘’]"), "'"},
	{regexp.MustCompile(`—{3,}`), "——"},
	{regexp.MustCompile(` +`), " "},
}

const sentenceEndings = `."!-—?'´’:),`

// Normalizer applies the cleaning rules to text elements.
type Normalizer struct {
	cfg    Config
	ignore []*regexp.Regexp
	stats  Stats
}

// New compiles cfg into a Normalizer.
func New(cfg Config) (*Normalizer, error) {
	n := &Normalizer{cfg: cfg, stats: Stats{Dropped: make(map[string]int64)}}
	if n.cfg.FragmentWords <= 0 {
		n.cfg.FragmentWords = DefaultConfig().FragmentWords
	}
	for _, p := range cfg.IgnorePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		n.ignore = append(n.ignore, re)
	}
	return n, nil
}

// Normalize returns the cleaned text and whether it should be kept. The label
// is carried over unchanged.
func (n *Normalizer) Normalize(t itemset.Text) (itemset.Text, bool) {
	n.stats.In++
	s, reason := n.clean(t.Body)
	if reason != "" {
		n.stats.Dropped[reason]++
		return itemset.Text{}, false
	}
	n.stats.Out++
	t.Body = s
	return t, true
}

// Process normalizes texts and returns the kept ones in order.
func (n *Normalizer) Process(texts []itemset.Text) []itemset.Text {
	out := make([]itemset.Text, 0, len(texts))
	for _, t := range texts {
		if nt, ok := n.Normalize(t); ok {
			out = append(out, nt)
		}
	}
	return out
}

// Stats returns a copy of the counters.
func (n *Normalizer) Stats() Stats {
	st := Stats{In: n.stats.In, Out: n.stats.Out, Dropped: make(map[string]int64, len(n.stats.Dropped))}
	for k, v := range n.stats.Dropped {
		st.Dropped[k] = v
	}
	return st
}

func (n *Normalizer) clean(s string) (string, string) {
	if n.cfg.StripHTML {
		s = StripHTML(s)
	}
	if n.cfg.NFKC {
		s = norm.NFKC.String(s)
	}
	if s == "" {
		return "", DropEmpty
	}
	if n.cfg.Fragments && n.isFragment(s) {
		return "", DropFragment
	}
	for _, re := range n.ignore {
		if re.MatchString(s) {
			return "", DropIgnored
		}
	}

	if !lowerPattern.MatchString(s) {
		return "", DropNoLower
	}
	if openPattern.MatchString(s) {
		return "", DropBracketed
	}
	for _, re := range unmatchedClosing {
		if re.MatchString(s) {
			return "", DropUnmatched
		}
	}
	if s[0] == ' ' {
		return "", DropIndented
	}
	if strings.ContainsRune(s, '\t') {
		return "", DropTab
	}

	for _, rw := range rewrites {
		s = rw.re.ReplaceAllString(s, rw.repl)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", DropEmpty
	}
	return s, ""
}

func (n *Normalizer) isFragment(s string) bool {
	last, _ := utf8.DecodeLastRuneInString(s)
	if strings.ContainsRune(sentenceEndings, last) || strings.Contains(s, ".") {
		return false
	}
	return len(strings.Split(s, " ")) < n.cfg.FragmentWords
}
