package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Aimisnotavailable/DEPEDHRMPSB/internal/simulate"
)

func newSimulateCmd() *cobra.Command {
	var cfg simulate.Config
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a scoring round against a live server and verify its ranking",
		Long: `simulate opens a round on a running server, registers candidates, submits
evaluator scores concurrently and waits for the cached leaderboard to agree
with the computed ranking. The run report is printed as JSON.`,
		Example: `  meritctl simulate --url http://localhost:9080 --candidates 200 --evaluators 5
  meritctl simulate --key teaching --seed 42 --plan plan.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rep, err := simulate.NewRunner(cfg).Run(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", simulate.DefaultBaseURL, "base URL of the service")
	f.StringVarP(&cfg.RubricKey, "key", "k", simulate.DefaultRubricKey, "rubric key of the simulated round")
	f.StringVar(&cfg.RoundID, "round", "", "round id to create (generated when empty)")
	f.IntVar(&cfg.Candidates, "candidates", simulate.DefaultCandidates, "number of candidates")
	f.IntVar(&cfg.Evaluators, "evaluators", simulate.DefaultEvaluators, "number of evaluators scoring every candidate")
	f.IntVar(&cfg.TopN, "top", simulate.DefaultTopN, "leaderboard size compared against the ranking")
	f.IntVar(&cfg.Workers, "workers", 0, "concurrent requests (default CPU cores * 2)")
	f.DurationVar(&cfg.Timeout, "timeout", simulate.DefaultTimeout, "HTTP request timeout")
	f.DurationVar(&cfg.Settle, "settle", simulate.DefaultSettle, "how long to wait for the leaderboard to converge")
	f.Uint64Var(&cfg.Seed, "seed", 0, "seed for generated scores (random when 0)")
	f.StringVar(&cfg.OutputFile, "plan", "", "write the generated plan to this JSON file")
	return cmd
}
