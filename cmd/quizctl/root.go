package main

import (
	"github.com/spf13/cobra"

	"github.com/mind-engage/denken-trainer/internal/config"
	"github.com/mind-engage/denken-trainer/internal/logger"
)

type globalFlags struct {
	csvDir   string
	dbDriver string
	dbDSN    string
	verbose  bool
}

func newRootCmd() *cobra.Command {
	cfg := config.FromEnv()
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "quizctl",
		Short: "Operator tooling for the denken trainer question bank",
		Long: `quizctl lints the CSV question files and imports them into the
SQL question bank used when QUESTION_SOURCE=sql.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&g.csvDir, "csv-dir", cfg.CSVBaseDir, "CSV base directory")
	root.PersistentFlags().StringVar(&g.dbDriver, "db-driver", cfg.DBDriver, "sqlite or postgres")
	root.PersistentFlags().StringVar(&g.dbDSN, "db-dsn", cfg.DBDSN, "database DSN")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log every skipped row")

	root.AddCommand(newCheckCmd(g), newImportCmd(g), newCountCmd(g))
	return root
}

func (g *globalFlags) logger() *logger.Logger {
	if !g.verbose {
		return logger.Nop()
	}
	log, err := logger.New("dev")
	if err != nil {
		return logger.Nop()
	}
	return log
}
