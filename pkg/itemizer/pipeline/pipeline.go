// Package pipeline assembles and runs the stage tree described by a run file:
// it resolves the named alphabets, opens the encoders, feeds the input
// through the parser and, once the stream has ended, writes extracted
// alphabets and records the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cognicore/itemizer/internal/logger"
	"github.com/cognicore/itemizer/pkg/itemizer/config"
	"github.com/cognicore/itemizer/pkg/itemizer/metrics"
	"github.com/cognicore/itemizer/pkg/itemizer/nlp"
	"github.com/cognicore/itemizer/pkg/itemizer/parser"
	"github.com/cognicore/itemizer/pkg/itemizer/pipe"
	"github.com/cognicore/itemizer/pkg/itemizer/store"
)

// Options carries the collaborators of a run. Every field is optional.
type Options struct {
	// Store persists alphabets and run records.
	Store store.Store
	// Annotator tokenizes text input. Defaults to an nlp.Client for the
	// configured URL.
	Annotator nlp.Annotator
	Metrics   *metrics.Metrics
	// Stdin is read when the input is "-" or empty; Stdout receives the
	// output of stages writing to "-".
	Stdin  io.Reader
	Stdout io.Writer
}

// Report summarizes a finished run.
type Report struct {
	RunID     string
	Lines     int64
	Stages    []StageReport
	Alphabets map[string]int
	Duration  time.Duration
}

// Run executes cfg.
func Run(ctx context.Context, cfg *config.Run, opts Options) (rep *Report, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	start := time.Now()
	rep = &Report{RunID: store.NewRunID(start)}
	ctx = logger.WithRunID(ctx, rep.RunID)
	log := logger.FromContext(ctx).With("component", "pipeline")

	if opts.Store != nil {
		rec := store.Run{ID: rep.RunID, Input: cfg.Input, Status: store.RunRunning, StartedAt: start}
		if err := opts.Store.StartRun(ctx, rec); err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
		defer func() {
			rec.FinishedAt = time.Now()
			rec.Lines = rep.Lines
			rec.Status = store.RunSucceeded
			if err != nil {
				rec.Status = store.RunFailed
				rec.Error = err.Error()
			}
			rec.Stages = make(map[string]int64, len(rep.Stages))
			for _, s := range rep.Stages {
				rec.Stages[s.Name] = s.Itemsets
			}
			if ferr := opts.Store.FinishRun(context.WithoutCancel(ctx), rec); ferr != nil {
				log.Error("record run outcome failed", "error", ferr)
			}
		}()
	}

	log.Info("run started", "input", cfg.Input, "format", cfg.Format, "stages", len(cfg.Stages))

	b := &builder{
		ctx:     ctx,
		sep:     cfg.Separator,
		stdout:  opts.Stdout,
		alphas:  newResolver(cfg, opts.Store),
		namer:   pipe.NewNamer(),
		metrics: opts.Metrics,
	}
	defer func() {
		if cerr := b.close(); cerr != nil && err == nil {
			err = fmt.Errorf("close encoders: %w", cerr)
		}
		for _, report := range b.reports {
			rep.Stages = append(rep.Stages, report())
		}
	}()

	src := parser.New(cfg.Separator)
	for _, s := range cfg.Stages {
		stage, err := b.build(s)
		if err != nil {
			return rep, err
		}
		src.Pipe(stage)
	}
	rep.Alphabets = b.alphas.sizes()
	for name, n := range rep.Alphabets {
		opts.Metrics.AlphabetSize.WithLabelValues(name).Set(float64(n))
	}

	if err := feed(ctx, cfg, opts, src); err != nil {
		return rep, err
	}
	rep.Lines = src.Lines()

	for _, x := range b.extracts {
		if err := writeExtraction(ctx, cfg.Separator, opts.Store, x); err != nil {
			return rep, fmt.Errorf("stage %s: %w", x.name, err)
		}
	}
	rep.Duration = time.Since(start)
	opts.Metrics.RunDuration.Set(rep.Duration.Seconds())
	b.observe()
	if cfg.Metrics.Textfile != "" {
		if err := opts.Metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return rep, fmt.Errorf("write metrics: %w", err)
		}
	}

	log.Info("run finished", "lines", rep.Lines, "duration", rep.Duration)
	return rep, nil
}

func writeExtraction(ctx context.Context, sep string, st store.Store, x extraction) error {
	if x.output != "" {
		if err := x.ext.WriteMeta(x.output, sep, x.translate); err != nil {
			return err
		}
	}
	if x.storeAs != "" {
		if st == nil {
			return errors.New("store_as without a store")
		}
		ab := x.ext.Counts().Translate(0)
		if err := st.SaveAlphabet(ctx, x.storeAs, store.FromAlphabet(ab)); err != nil {
			return err
		}
	}
	return nil
}
