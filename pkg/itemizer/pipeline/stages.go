package pipeline

import (
	"context"
	"io"

	"github.com/cognicore/itemizer/pkg/itemizer/alphabet"
	"github.com/cognicore/itemizer/pkg/itemizer/config"
	"github.com/cognicore/itemizer/pkg/itemizer/encode"
	"github.com/cognicore/itemizer/pkg/itemizer/metrics"
	"github.com/cognicore/itemizer/pkg/itemizer/pipe"
)

// StageReport describes what one stage did.
type StageReport struct {
	Name     string
	Kind     string
	Output   string
	Itemsets int64
	Items    int64
	Dropped  int64
	Bytes    int64
}

// encoder is implemented by every encode stage.
type encoder interface {
	pipe.Stage
	io.Closer
	Records() int64
	Bytes() int64
}

type namedEncoder struct {
	name string
	encoder
}

// extraction is an extractor whose alphabet is written once the stream ends.
type extraction struct {
	name      string
	ext       *pipe.Extractor
	output    string
	storeAs   string
	translate bool
}

// builder turns the stage tree of a run into connected stages.
type builder struct {
	ctx      context.Context
	sep      string
	stdout   io.Writer
	alphas   *resolver
	namer    *pipe.Namer
	metrics  *metrics.Metrics
	encoders []namedEncoder
	extracts []extraction
	reports  []func() StageReport
}

func (b *builder) build(s config.Stage) (pipe.Stage, error) {
	name := b.namer.Name(s.Kind, s.Name)

	var stage pipe.Stage
	switch s.Kind {
	case config.KindFilter:
		ab, err := b.alphas.get(b.ctx, s.Alphabet)
		if err != nil {
			return nil, err
		}
		f, err := pipe.NewFilter(ab, s.Translate)
		if err != nil {
			return nil, err
		}
		for _, child := range s.Stages {
			next, err := b.build(child)
			if err != nil {
				return nil, err
			}
			f.Pipe(next)
		}
		b.reports = append(b.reports, func() StageReport {
			st := f.Stats()
			return StageReport{Name: name, Kind: s.Kind, Itemsets: st.ItemsetsIn, Items: st.ItemsIn, Dropped: st.Dropped()}
		})
		stage = f

	case config.KindExtract:
		ext := pipe.NewExtractor()
		b.extracts = append(b.extracts, extraction{
			name:      name,
			ext:       ext,
			output:    s.Output,
			storeAs:   s.StoreAs,
			translate: s.Translate,
		})
		b.reports = append(b.reports, func() StageReport {
			return StageReport{Name: name, Kind: s.Kind, Output: s.Output, Itemsets: ext.Itemsets(), Items: ext.Counts().Total()}
		})
		stage = ext

	case config.KindRaw, config.KindCSV, config.KindText:
		enc, err := b.openEncoder(s)
		if err != nil {
			return nil, err
		}
		b.encoders = append(b.encoders, namedEncoder{name: name, encoder: enc})
		b.reports = append(b.reports, func() StageReport {
			return StageReport{Name: name, Kind: s.Kind, Output: s.Output, Itemsets: enc.Records(), Bytes: enc.Bytes()}
		})
		stage = enc
	}

	return pipe.Named(name, b.metrics.Instrument(name, stage)), nil
}

func (b *builder) openEncoder(s config.Stage) (encoder, error) {
	var ab *alphabet.Alphabet
	if s.Kind != config.KindText {
		var err error
		if ab, err = b.alphas.get(b.ctx, s.Alphabet); err != nil {
			return nil, err
		}
	}

	if s.Output == "-" {
		switch s.Kind {
		case config.KindRaw:
			return encode.NewRaw(b.stdout, ab)
		case config.KindCSV:
			return encode.NewCSV(b.stdout, ab, s.Separator)
		default:
			return encode.NewText(b.stdout, s.WithLabels()), nil
		}
	}
	switch s.Kind {
	case config.KindRaw:
		return encode.CreateRaw(s.Output, ab)
	case config.KindCSV:
		return encode.CreateCSV(s.Output, ab, s.Separator)
	default:
		return encode.CreateText(s.Output, s.WithLabels())
	}
}

// observe publishes the encoder byte counts.
func (b *builder) observe() {
	for _, enc := range b.encoders {
		b.metrics.EncodedBytes.WithLabelValues(enc.name).Set(float64(enc.Bytes()))
	}
}

// close closes every encoder and returns the first error.
func (b *builder) close() error {
	var first error
	for _, enc := range b.encoders {
		if err := enc.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
