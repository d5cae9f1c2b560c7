// Package tokenize turns raw text elements into itemsets using the tokens,
// lemmas and part-of-speech tags returned by an nlp.Annotator.
package tokenize

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/cognicore/itemizer/pkg/itemizer/internalerr"
	"github.com/cognicore/itemizer/pkg/itemizer/itemset"
	"github.com/cognicore/itemizer/pkg/itemizer/nlp"
	"github.com/cognicore/itemizer/pkg/itemizer/stoplist"
)

// Quote actions for tokens between double quotes.
const (
	QuoteDelete     = "delete"
	QuoteSubstitute = "substitute"
	QuoteKeep       = "keep"
)

// QuotePlaceholder replaces quoted tokens under QuoteSubstitute.
const QuotePlaceholder = "<QQQ>"

// Config controls a Processor.
type Config struct {
	Lemmatize     bool `yaml:"lemmatize"`
	SentenceSplit bool `yaml:"sentence_split"`
	// MinLength is exclusive: itemsets must have more items to be emitted.
	MinLength   int    `yaml:"min_length"`
	QuoteAction string `yaml:"quote_action"`
	// POSFilter is a "|" separated list of tags to keep, or to drop when it
	// starts with "^". Empty keeps every tag.
	POSFilter string `yaml:"pos_filter"`
	// POSSubstitute lists tags whose tokens are replaced by "<TAG>".
	POSSubstitute string   `yaml:"pos_substitute"`
	StopWords     []string `yaml:"stop_words"`
	SplitOn       []string `yaml:"split_on"`
	Separator     string   `yaml:"separator"`
}

// DefaultConfig returns the default tokenizer settings.
func DefaultConfig() Config {
	return Config{QuoteAction: QuoteDelete, Separator: itemset.DefaultSeparator}
}

// Stats counts what a Processor has seen and produced.
type Stats struct {
	Texts     int64
	Sentences int64
	Tokens    int64
	Itemsets  int64
	Items     int64
}

// Processor converts text elements into itemsets.
type Processor struct {
	cfg       Config
	annotator nlp.Annotator
	stops     *stoplist.Manager
	posSet    map[string]bool
	posDrop   bool
	subst     map[string]bool
	splitOn   map[string]bool
	stats     Stats
	flights   singleflight.Group
}

// New validates cfg and creates a Processor using annotator.
func New(cfg Config, annotator nlp.Annotator) (*Processor, error) {
	if annotator == nil {
		return nil, fmt.Errorf("%w: annotator required", internalerr.ErrInvalidConfig)
	}
	switch cfg.QuoteAction {
	case "":
		cfg.QuoteAction = QuoteDelete
	case QuoteDelete, QuoteSubstitute, QuoteKeep:
	default:
		return nil, fmt.Errorf("%w: quote action %q", internalerr.ErrInvalidConfig, cfg.QuoteAction)
	}
	if cfg.Separator == "" {
		cfg.Separator = itemset.DefaultSeparator
	}

	p := &Processor{
		cfg:       cfg,
		annotator: annotator,
		posSet:    make(map[string]bool),
		posDrop:   true,
		subst:     make(map[string]bool),
		splitOn:   make(map[string]bool),
	}
	if f := cfg.POSFilter; f != "" {
		p.posDrop = strings.HasPrefix(f, "^")
		for _, tag := range strings.Split(strings.TrimPrefix(f, "^"), "|") {
			p.posSet[tag] = true
		}
	}
	if cfg.POSSubstitute != "" {
		for _, tag := range strings.Split(cfg.POSSubstitute, "|") {
			p.subst[tag] = true
		}
	}
	for _, s := range cfg.SplitOn {
		p.splitOn[s] = true
	}
	if len(cfg.StopWords) > 0 {
		stops, err := stoplist.NewManager(cfg.StopWords)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
		}
		p.stops = stops
	}
	return p, nil
}

// Process annotates one text element and returns its itemsets.
func (p *Processor) Process(ctx context.Context, t itemset.Text) ([]itemset.Itemset, error) {
	sents, err := p.annotator.Annotate(ctx, t.Body, p.cfg.Lemmatize)
	if err != nil {
		return nil, err
	}
	return p.build(t, sents), nil
}

// Stats returns the counters.
func (p *Processor) Stats() Stats {
	return p.stats
}

func (p *Processor) build(t itemset.Text, sents []nlp.Sentence) []itemset.Itemset {
	p.stats.Texts++

	var out []itemset.Itemset
	cur := t.Itemset(p.cfg.Separator)
	emit := func() {
		if cur.Len() > p.cfg.MinLength {
			out = append(out, cur)
			p.stats.Itemsets++
			p.stats.Items += int64(cur.Len())
			cur = t.Itemset(p.cfg.Separator)
		}
	}

	quoted := false
	for i, sent := range sents {
		p.stats.Sentences++
		for j, tok := range sent.Tokens {
			p.stats.Tokens++

			isQuote := tok.OriginalText == `"`
			if isQuote {
				if i+j > 0 {
					quoted = !quoted
				} else {
					quoted = true
				}
			} else if quoted && p.cfg.QuoteAction == QuoteDelete {
				continue
			}

			keep := p.posSet[tok.POS] != p.posDrop

			var word string
			switch {
			case quoted && !isQuote && p.cfg.QuoteAction == QuoteSubstitute:
				word = QuotePlaceholder
			case p.cfg.Lemmatize:
				word = tok.Lemma
			default:
				word = strings.ToLower(tok.Word)
			}

			if p.stops.IsStop(word) {
				keep = false
			}
			if p.subst[tok.POS] {
				word = "<" + tok.POS + ">"
			}
			// closing quote in Penn Treebank escaping
			if word == "''" {
				keep = false
			}
			if keep {
				cur.Append(word)
			}

			last := j == len(sent.Tokens)-1
			if !quoted && (p.splitOn[tok.OriginalText] || (p.cfg.SentenceSplit && last)) {
				emit()
			}
		}
		// every sentence ends an itemset, even inside quotes
		emit()
	}
	return out
}
