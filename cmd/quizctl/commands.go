package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mind-engage/denken-trainer/internal/db"
	"github.com/mind-engage/denken-trainer/internal/formats"
	"github.com/mind-engage/denken-trainer/internal/questions"
	"github.com/mind-engage/denken-trainer/internal/quiz"
)

func newCheckCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Parse every CSV file and report skipped rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			src := questions.NewCSVDir(g.csvDir, g.logger())
			out := cmd.OutOrStdout()
			bad := 0
			for _, f := range formats.All() {
				b, err := src.Scan(cmd.Context(), f)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-6s %3d files  %5d questions  %3d skipped\n", f, len(b.Files), len(b.Questions), len(b.Issues))
				for _, is := range b.Issues {
					if is.Row < 0 {
						fmt.Fprintf(out, "  %s: %s\n", is.File, is.Reason)
					} else {
						fmt.Fprintf(out, "  %s row %d: %s\n", is.File, is.Row+1, is.Reason)
					}
				}
				bad += len(b.Issues)
				printCategories(cmd, b.Questions)
			}
			if bad > 0 {
				return fmt.Errorf("%d rows skipped", bad)
			}
			return nil
		},
	}
}

func printCategories(cmd *cobra.Command, qs []quiz.Question) {
	counts := map[string]int{}
	for _, q := range qs {
		counts[q.Category]++
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(cmd.OutOrStdout(), "    %s: %d\n", name, counts[name])
	}
}

func newImportCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Load the CSV files into the SQL question bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dbh, err := db.Open(ctx, db.Driver(g.dbDriver), g.dbDSN)
			if err != nil {
				return fmt.Errorf("db open: %w", err)
			}
			defer dbh.Close()

			src := questions.NewCSVDir(g.csvDir, g.logger())
			store := questions.NewSQLStore(dbh)
			for _, f := range formats.All() {
				b, err := src.Scan(ctx, f)
				if err != nil {
					return err
				}
				if err := store.PutQuestions(ctx, b.Questions); err != nil {
					return fmt.Errorf("import %s: %w", f, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-6s imported %d (skipped %d)\n", f, len(b.Questions), len(b.Issues))
			}
			return nil
		},
	}
}

func newCountCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Show how many questions the SQL bank holds per format",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbh, err := db.Open(cmd.Context(), db.Driver(g.dbDriver), g.dbDSN)
			if err != nil {
				return fmt.Errorf("db open: %w", err)
			}
			defer dbh.Close()

			counts, err := questions.NewSQLStore(dbh).Count(cmd.Context())
			if err != nil {
				return err
			}
			for _, f := range formats.All() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-6s %d\n", f, counts[f])
			}
			return nil
		},
	}
}
