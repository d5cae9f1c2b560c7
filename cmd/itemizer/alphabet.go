package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/itemizer/pkg/itemizer/alphabet"
	"github.com/cognicore/itemizer/pkg/itemizer/store"
)

func (a *app) alphabetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alphabet",
		Short: "Inspect, trim, intersect and store alphabets",
	}
	cmd.AddCommand(
		a.alphabetShowCmd(),
		a.alphabetTrimCmd(),
		a.alphabetIntersectCmd(),
		a.alphabetListCmd(),
		a.alphabetSaveCmd(),
		a.alphabetExportCmd(),
		a.alphabetDeleteCmd(),
	)
	return cmd
}

func (a *app) alphabetShowCmd() *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Print the ranked items of a translated alphabet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ab, err := alphabet.Load(args[0], a.cfg.Separator)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "size %d, first code %d\n", ab.Len(), ab.First())
			order := ab.Order()
			if top > 0 && top < len(order) {
				order = order[:top]
			}
			for _, item := range order {
				code, _ := ab.Code(item)
				fmt.Fprintf(out, "%d\t%s\t%d\n", code, item, ab.Count(item))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&top, "top", "n", 0, "Only print the first n items")
	return cmd
}

func (a *app) alphabetTrimCmd() *cobra.Command {
	var (
		keepN   int
		minFreq int64
	)
	cmd := &cobra.Command{
		Use:   "trim <in> <out>",
		Short: "Keep frequent items of an alphabet and renumber them from 0",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keepN <= 0 && minFreq <= 0 {
				return fmt.Errorf("--keep-n or --min-frequency required")
			}
			ab, err := alphabet.Load(args[0], a.cfg.Separator)
			if err != nil {
				return err
			}
			if minFreq > 0 {
				ab = ab.KeepMinFrequency(minFreq)
			}
			if keepN > 0 {
				ab = ab.KeepN(keepN)
			}
			return alphabet.Save(args[1], a.cfg.Separator, ab)
		},
	}
	cmd.Flags().IntVarP(&keepN, "keep-n", "n", 0, "Keep the n most frequent items")
	cmd.Flags().Int64Var(&minFreq, "min-frequency", 0, "Keep items counted at least this often")
	return cmd
}

func (a *app) alphabetIntersectCmd() *cobra.Command {
	var policy string
	cmd := &cobra.Command{
		Use:   "intersect <a> <b> <out>",
		Short: "Keep the items of a that also occur in b",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := alphabet.ParseCountPolicy(policy)
			if err != nil {
				return err
			}
			left, err := alphabet.Load(args[0], a.cfg.Separator)
			if err != nil {
				return err
			}
			right, err := alphabet.Load(args[1], a.cfg.Separator)
			if err != nil {
				return err
			}
			ab, err := left.Intersect(right, p)
			if err != nil {
				return err
			}
			return alphabet.Save(args[2], a.cfg.Separator, ab)
		},
	}
	cmd.Flags().StringVar(&policy, "policy", "keep", "Counts of shared items: keep, take or add")
	return cmd
}

func (a *app) alphabetListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored alphabets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.requireStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			infos, err := st.ListAlphabets(ctx)
			if err != nil {
				return err
			}
			for _, info := range infos {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", info.Name, info.Size, info.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func (a *app) alphabetSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <file> <name>",
		Short: "Store a translated alphabet file under a name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ab, err := alphabet.Load(args[0], a.cfg.Separator)
			if err != nil {
				return err
			}
			st, err := a.requireStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			return st.SaveAlphabet(ctx, args[1], store.FromAlphabet(ab))
		},
	}
}

func (a *app) alphabetExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <name> <file>",
		Short: "Write a stored alphabet to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.requireStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			parts, err := st.LoadAlphabet(ctx, args[0])
			if err != nil {
				return err
			}
			ab, err := parts.Resolve()
			if err != nil {
				return err
			}
			return alphabet.Save(args[1], a.cfg.Separator, ab)
		},
	}
}

func (a *app) alphabetDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a stored alphabet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.requireStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			return st.DeleteAlphabet(ctx, args[0])
		},
	}
}
