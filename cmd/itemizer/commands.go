package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cognicore/itemizer/pkg/itemizer/config"
	"github.com/cognicore/itemizer/pkg/itemizer/encode"
	"github.com/cognicore/itemizer/pkg/itemizer/normalize"
	"github.com/cognicore/itemizer/pkg/itemizer/pipeline"
)

func (a *app) runCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the stage tree of a run file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.configPath == "" {
				return fmt.Errorf("--config required")
			}
			cfg := *a.cfg
			if input != "" {
				cfg.Input = input
			}
			return a.execute(cmd, &cfg)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Input overriding the run file (- for stdin)")
	return cmd
}

func (a *app) extractCmd() *cobra.Command {
	var (
		output    string
		storeAs   string
		translate bool
	)
	cmd := &cobra.Command{
		Use:   "extract <itemsets>",
		Short: "Count the items of an itemset file into an alphabet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" && storeAs == "" {
				return fmt.Errorf("--output or --store-as required")
			}
			return a.execute(cmd, a.adhoc(args[0], nil, config.Stage{
				Kind:      config.KindExtract,
				Output:    output,
				StoreAs:   storeAs,
				Translate: translate,
			}))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Alphabet file to write (.cbor for a snapshot)")
	cmd.Flags().StringVar(&storeAs, "store-as", "", "Save the ranked alphabet in the store under this name")
	cmd.Flags().BoolVar(&translate, "translate", true, "Rank the alphabet before writing it")
	return cmd
}

// alphabetFlags selects a reference alphabet from a file or the store.
type alphabetFlags struct {
	file   string
	stored string
}

func (f *alphabetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "alphabet", "a", "", "Translated alphabet file")
	cmd.Flags().StringVar(&f.stored, "stored", "", "Name of a stored alphabet")
}

func (f *alphabetFlags) alphabets() (map[string]config.Alphabet, error) {
	if (f.file == "") == (f.stored == "") {
		return nil, fmt.Errorf("exactly one of --alphabet or --stored required")
	}
	return map[string]config.Alphabet{"ref": {File: f.file, Stored: f.stored}}, nil
}

func (a *app) filterCmd() *cobra.Command {
	var (
		ref       alphabetFlags
		output    string
		translate bool
		noLabels  bool
	)
	cmd := &cobra.Command{
		Use:   "filter <itemsets>",
		Short: "Drop items missing from an alphabet, optionally replacing the rest by codes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alphas, err := ref.alphabets()
			if err != nil {
				return err
			}
			labels := !noLabels
			return a.execute(cmd, a.adhoc(args[0], alphas, config.Stage{
				Kind:      config.KindFilter,
				Alphabet:  "ref",
				Translate: translate,
				Stages: []config.Stage{{
					Kind:   config.KindText,
					Output: output,
					Labels: &labels,
				}},
			}))
		},
	}
	ref.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file (- for stdout)")
	cmd.Flags().BoolVar(&translate, "translate", false, "Replace items by their codes")
	cmd.Flags().BoolVar(&noLabels, "no-labels", false, "Omit labels from the output")
	return cmd
}

func (a *app) encodeCmd() *cobra.Command {
	var (
		ref    alphabetFlags
		format string
		output string
		csvSep string
	)
	cmd := &cobra.Command{
		Use:   "encode <itemsets>",
		Short: "Encode itemsets as raw count records or CSV rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case config.KindRaw, config.KindCSV:
			default:
				return fmt.Errorf("unknown format %q (raw, csv)", format)
			}
			alphas, err := ref.alphabets()
			if err != nil {
				return err
			}
			return a.execute(cmd, a.adhoc(args[0], alphas, config.Stage{
				Kind:      format,
				Alphabet:  "ref",
				Output:    output,
				Separator: csvSep,
			}))
		},
	}
	ref.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", config.KindRaw, "Output format (raw, csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file (- for stdout)")
	cmd.Flags().StringVar(&csvSep, "csv-sep", " ", "Field separator of CSV rows")
	return cmd
}

func (a *app) normalizeCmd() *cobra.Command {
	var (
		output    string
		stripHTML bool
		nfkc      bool
	)
	cmd := &cobra.Command{
		Use:   "normalize <texts>",
		Short: "Clean raw text lines and drop the ones that are not prose",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := normalize.DefaultConfig()
			if a.cfg.Normalize != nil {
				cfg = *a.cfg.Normalize
			}
			cfg.StripHTML = cfg.StripHTML || stripHTML
			cfg.NFKC = cfg.NFKC || nfkc

			n, err := normalize.New(cfg)
			if err != nil {
				return err
			}
			texts, err := pipeline.ReadTexts(a.adhoc(args[0], nil), cmd.InOrStdin())
			if err != nil {
				return err
			}

			out := n.Process(texts)
			err = writeTo(cmd, output, func(w io.Writer) error {
				bw := bufio.NewWriter(w)
				for _, t := range out {
					if _, err := bw.WriteString(t.String() + "\n"); err != nil {
						return err
					}
				}
				return bw.Flush()
			})
			if err != nil {
				return err
			}

			st := n.Stats()
			slog.Info("normalized", "in", st.In, "out", st.Out, "dropped", st.Dropped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file (- for stdout)")
	cmd.Flags().BoolVar(&stripHTML, "html", false, "Strip HTML markup")
	cmd.Flags().BoolVar(&nfkc, "nfkc", false, "Apply Unicode NFKC folding")
	return cmd
}

func (a *app) tokenizeCmd() *cobra.Command {
	var (
		output   string
		format   string
		nlpURL   string
		workers  int
		clean    bool
		noLabels bool
	)
	cmd := &cobra.Command{
		Use:   "tokenize <texts>",
		Short: "Annotate text with an NLP server and write one itemset per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.adhoc(args[0], nil)
			cfg.Format = format
			if nlpURL != "" {
				cfg.NLP.URL = nlpURL
			}
			if workers > 0 {
				cfg.NLP.Workers = workers
			}
			switch {
			case !clean:
				cfg.Normalize = nil
			case cfg.Normalize == nil:
				def := normalize.DefaultConfig()
				cfg.Normalize = &def
			}

			texts, err := pipeline.ReadTexts(cfg, cmd.InOrStdin())
			if err != nil {
				return err
			}
			sets, err := pipeline.Itemize(cmd.Context(), cfg, nil, nil, texts)
			if err != nil {
				return err
			}

			return writeTo(cmd, output, func(w io.Writer) error {
				enc := encode.NewText(w, !noLabels)
				for _, is := range sets {
					if err := enc.Consume(is); err != nil {
						enc.Close()
						return err
					}
				}
				return enc.Close()
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file (- for stdout)")
	cmd.Flags().StringVar(&format, "format", config.FormatText, "Input format (text, jsonl)")
	cmd.Flags().StringVar(&nlpURL, "nlp-url", "", "Annotation server URL")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent annotation requests")
	cmd.Flags().BoolVar(&clean, "normalize", false, "Normalize texts before tokenizing")
	cmd.Flags().BoolVar(&noLabels, "no-labels", false, "Omit labels from the output")
	return cmd
}

func (a *app) runsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs [id]",
		Short: "List recorded runs, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.requireStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				r, err := st.GetRun(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %s %s lines=%d\n", r.ID, r.Status, r.Input, r.Lines)
				if r.Error != "" {
					fmt.Fprintf(out, "error: %s\n", r.Error)
				}
				for name, n := range r.Stages {
					fmt.Fprintf(out, "  %s\t%d\n", name, n)
				}
				return nil
			}

			runs, err := st.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Fprintf(out, "%s\t%s\t%s\t%d\n", r.ID, r.Status, r.Input, r.Lines)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs listed")
	return cmd
}

// writeTo calls fn with the command's stdout for "-" or a created file.
func writeTo(cmd *cobra.Command, path string, fn func(io.Writer) error) (err error) {
	if path == "" || path == "-" {
		return fn(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(f)
}
