package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aimisnotavailable/DEPEDHRMPSB/internal/config"
	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
	"github.com/Aimisnotavailable/DEPEDHRMPSB/pkg/logger"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	rubricsPath    string
	logLevel       string
	enforceWeights bool
}

// config returns a Config carrying the rubric flags.
func (o *rootOptions) config() *config.Config {
	cfg := config.New()
	cfg.RubricsPath = o.rubricsPath
	cfg.EnforceWeightTotal = o.enforceWeights
	return cfg
}

func (o *rootOptions) rubrics(ctx context.Context) (*scoring.RubricSet, error) {
	return o.config().LoadRubrics(ctx)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "meritctl",
		Short: "Operate the merit selection board scoring service",
		Long: `meritctl works with rubric catalogs and selection rounds.

Without --rubrics the embedded default catalog (teaching and non-teaching
positions) is used.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return logger.Init(logger.WithLevel(opts.logLevel), logger.WithOutput(cmd.ErrOrStderr()))
		},
	}
	cmd.PersistentFlags().StringVar(&opts.rubricsPath, "rubrics", os.Getenv("PSB_RUBRICS_PATH"), "rubric catalog file (YAML or JSON)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&opts.enforceWeights, "enforce-weights", true, "require rubric weights to sum to the composite ceiling")

	cmd.AddCommand(newValidateCmd(opts), newScoreCmd(opts), newSimulateCmd())
	return cmd
}
