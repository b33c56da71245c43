package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aimisnotavailable/DEPEDHRMPSB/internal/config"
	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
)

// ErrInvalidCatalog is returned when at least one rubric fails validation.
var ErrInvalidCatalog = errors.New("rubric catalog has invalid rubrics")

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check every rubric in a catalog and list all violations",
		Example: `  meritctl validate
  meritctl validate --rubrics ./rubrics.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data := config.DefaultRubrics()
			if opts.rubricsPath != "" {
				b, err := os.ReadFile(opts.rubricsPath)
				if err != nil {
					return fmt.Errorf("read rubrics: %w", err)
				}
				data = b
			}
			catalog, err := scoring.ParseCatalog(data)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			cfg := opts.config()
			invalid := 0
			seen := make(map[string]bool, len(catalog.Rubrics))
			for _, spec := range catalog.Rubrics {
				if seen[spec.Key] {
					invalid++
					fmt.Fprintf(out, "FAIL %s\n  duplicate rubric key\n", spec.Key)
					continue
				}
				seen[spec.Key] = true

				r, err := scoring.NewRubric(spec, cfg.RubricOptions()...)
				if err == nil {
					fmt.Fprintf(out, "ok   %s (weights %g of %g)\n", r.Key(), r.WeightTotal(), r.MaxComposite())
					continue
				}
				invalid++
				fmt.Fprintf(out, "FAIL %s\n", spec.Key)
				var ir *scoring.InvalidRubricError
				if !errors.As(err, &ir) {
					fmt.Fprintf(out, "  %v\n", err)
					continue
				}
				for _, v := range ir.Violations {
					fmt.Fprintf(out, "  %s: %s\n", v.Field, v.Message)
				}
			}
			if invalid > 0 {
				return fmt.Errorf("%w: %d of %d", ErrInvalidCatalog, invalid, len(catalog.Rubrics))
			}
			return nil
		},
	}
}
