package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cognicore/itemizer/internal/logger"
	"github.com/cognicore/itemizer/pkg/itemizer/config"
	"github.com/cognicore/itemizer/pkg/itemizer/pipeline"
	"github.com/cognicore/itemizer/pkg/itemizer/store"
	"github.com/cognicore/itemizer/pkg/itemizer/store/memstore"
	"github.com/cognicore/itemizer/pkg/itemizer/store/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Fatalf("itemizer: %v", err)
	}
}

// app holds the state shared by every subcommand.
type app struct {
	configPath    string
	stoplistPath  string
	tokenizerPath string
	logLevel      string
	separator     string
	storeDriver   string
	storeDSN      string

	cfg *config.Run
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "itemizer",
		Short: "Turn corpora into itemsets and encode them against ranked alphabets",
		Long: `itemizer streams itemsets (one per line, optionally labeled with a
trailing "[n]") through filters, alphabet extractors and encoders.

Ad hoc commands (extract, filter, encode) build a one-stage pipeline; "run"
executes a whole stage tree from a YAML run file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Run file (YAML)")
	flags.StringVar(&a.stoplistPath, "stoplist", "", "Stop-word list added to the tokenizer options")
	flags.StringVar(&a.tokenizerPath, "tokenizer", "", "Tokenizer options file (YAML)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&a.separator, "sep", "", "Item separator (default from the run file, or a space)")
	flags.StringVar(&a.storeDriver, "store", "", "Store driver (sqlite, memory)")
	flags.StringVar(&a.storeDSN, "store-dsn", "", "Store location, e.g. the sqlite database path")

	root.AddCommand(
		a.runCmd(),
		a.extractCmd(),
		a.filterCmd(),
		a.encodeCmd(),
		a.normalizeCmd(),
		a.tokenizeCmd(),
		a.alphabetCmd(),
		a.runsCmd(),
	)
	return root
}

// setup loads the run file and side files and configures logging. Flags
// override the loaded values.
func (a *app) setup() error {
	loader := &config.Loader{
		RunPath:       a.configPath,
		StoplistPath:  a.stoplistPath,
		TokenizerPath: a.tokenizerPath,
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.separator != "" {
		cfg.Separator = a.separator
	}
	if a.storeDriver != "" {
		cfg.Store.Driver = a.storeDriver
	}
	if a.storeDSN != "" {
		cfg.Store.DSN = a.storeDSN
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	a.cfg = cfg
	return nil
}

// adhoc returns a copy of the loaded run reading input through stages.
func (a *app) adhoc(input string, alphabets map[string]config.Alphabet, stages ...config.Stage) *config.Run {
	cfg := *a.cfg
	cfg.Input = input
	cfg.Stages = stages
	cfg.Alphabets = alphabets
	if cfg.Alphabets == nil {
		cfg.Alphabets = map[string]config.Alphabet{}
	}
	return &cfg
}

// execute runs cfg with the command's streams and logs the report.
func (a *app) execute(cmd *cobra.Command, cfg *config.Run) error {
	ctx := cmd.Context()
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	rep, err := pipeline.Run(ctx, cfg, pipeline.Options{
		Store:  st,
		Stdin:  cmd.InOrStdin(),
		Stdout: cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}
	for _, s := range rep.Stages {
		slog.Info("stage",
			"run_id", rep.RunID,
			"name", s.Name,
			"kind", s.Kind,
			"itemsets", s.Itemsets,
			"items", s.Items,
			"dropped", s.Dropped,
			"bytes", s.Bytes,
		)
	}
	return nil
}

// openStore opens the configured store. It returns nil without a driver.
func openStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "":
		return nil, nil
	case "memory":
		return memstore.New(), nil
	case "sqlite":
		if sc.DSN == "" {
			return nil, fmt.Errorf("sqlite store: --store-dsn required")
		}
		return sqlite.OpenSQLite(ctx, sc.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
	}
}

// requireStore opens the configured store and fails when none is configured.
func (a *app) requireStore(ctx context.Context) (store.Store, error) {
	st, err := openStore(ctx, a.cfg.Store)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("no store configured: use --store and --store-dsn")
	}
	return st, nil
}
