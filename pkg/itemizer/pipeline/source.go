package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cognicore/itemizer/internal/logger"
	"github.com/cognicore/itemizer/pkg/itemizer/config"
	"github.com/cognicore/itemizer/pkg/itemizer/itemset"
	"github.com/cognicore/itemizer/pkg/itemizer/metrics"
	"github.com/cognicore/itemizer/pkg/itemizer/nlp"
	"github.com/cognicore/itemizer/pkg/itemizer/normalize"
	"github.com/cognicore/itemizer/pkg/itemizer/parser"
	"github.com/cognicore/itemizer/pkg/itemizer/tokenize"
)

// feed pushes the input of cfg through src.
func feed(ctx context.Context, cfg *config.Run, opts Options, src *parser.Parser) error {
	if cfg.Format == "" || cfg.Format == config.FormatItemsets {
		if stdin(cfg.Input) {
			return src.Parse(opts.Stdin)
		}
		return src.ParseFile(cfg.Input)
	}

	texts, err := ReadTexts(cfg, opts.Stdin)
	if err != nil {
		return err
	}
	sets, err := Itemize(ctx, cfg, opts.Annotator, opts.Metrics, texts)
	if err != nil {
		return err
	}
	return src.Feed(sets)
}

func stdin(input string) bool {
	return input == "" || input == "-"
}

// ReadTexts reads the text elements named by cfg.Input, from r when the
// input is "-" or empty.
func ReadTexts(cfg *config.Run, r io.Reader) ([]itemset.Text, error) {
	if stdin(cfg.Input) {
		return parser.ReadTexts(r)
	}
	if cfg.Format == config.FormatJSONL {
		return parser.LoadJSONL(cfg.Input)
	}
	return parser.LoadTexts(cfg.Input)
}

// Itemize normalizes texts when cfg enables it and tokenizes them into
// itemsets. A nil annotator means an nlp.Client for cfg.NLP.URL; a nil m
// disables metrics.
func Itemize(ctx context.Context, cfg *config.Run, annotator nlp.Annotator, m *metrics.Metrics, texts []itemset.Text) ([]itemset.Itemset, error) {
	log := logger.FromContext(ctx).With("component", "tokenize")

	if cfg.Normalize != nil {
		n, err := normalize.New(*cfg.Normalize)
		if err != nil {
			return nil, fmt.Errorf("normalize: %w", err)
		}
		texts = n.Process(texts)
		st := n.Stats()
		if m != nil {
			m.TextsTotal.WithLabelValues("kept").Add(float64(st.Out))
			for reason, count := range st.Dropped {
				m.TextsTotal.WithLabelValues(reason).Add(float64(count))
			}
		}
		log.Debug("normalized", "in", st.In, "out", st.Out)
	}

	if annotator == nil {
		annotator = &nlp.Client{BaseURL: cfg.NLP.URL}
	}
	tok := cfg.Tokenize
	if tok.Separator == "" {
		tok.Separator = cfg.Separator
	}
	p, err := tokenize.New(tok, annotator)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	sets, err := p.ProcessAll(ctx, texts, cfg.NLP.Workers)
	if m != nil {
		metrics.ObserveSince(m.AnnotationDuration, start)
	}
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	st := p.Stats()
	log.Info("tokenized", "texts", st.Texts, "sentences", st.Sentences, "itemsets", st.Itemsets)
	return sets, nil
}
