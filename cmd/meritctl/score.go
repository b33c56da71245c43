package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	model "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/model"
	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
)

// roundFile is the offline description of a round. YAML and JSON are accepted.
type roundFile struct {
	RoundID       string                   `yaml:"round_id"`
	RubricKey     string                   `yaml:"rubric_key"`
	PositionTitle string                   `yaml:"position_title"`
	Baseline      scoring.RawQualification `yaml:"baseline"`
	Candidates    []candidateFile          `yaml:"candidates"`
}

type candidateFile struct {
	Code          string                   `yaml:"code"`
	Name          string                   `yaml:"name"`
	Qualification scoring.RawQualification `yaml:"qualification"`
	Applicant     map[string]float64       `yaml:"applicant"`
	Evaluations   []evaluationFile         `yaml:"evaluations"`
}

type evaluationFile struct {
	EvaluatorID string                        `yaml:"evaluator_id"`
	Scores      map[string]map[string]float64 `yaml:"scores"`
	Comment     string                        `yaml:"comment"`
}

func newScoreCmd(opts *rootOptions) *cobra.Command {
	var input, key string
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute the comparative assessment result of a round file",
		Long: `score reads a round file, scores every candidate with the selected rubric
and prints the ranking as JSON. Nothing is stored.`,
		Example: `  meritctl score --input round.yaml
  meritctl score --input round.json --key teaching --rubrics ./rubrics.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read round file: %w", err)
			}
			var rf roundFile
			if err := yaml.Unmarshal(data, &rf); err != nil {
				return fmt.Errorf("decode round file: %w", err)
			}
			if key != "" {
				rf.RubricKey = key
			}
			if rf.RubricKey == "" {
				return fmt.Errorf("round file names no rubric_key and --key is unset")
			}

			set, err := opts.rubrics(cmd.Context())
			if err != nil {
				return err
			}
			rubric, err := set.Lookup(rf.RubricKey)
			if err != nil {
				return err
			}
			ranking, err := scoreRound(rubric, rf)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(ranking)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "round file to score")
	cmd.Flags().StringVarP(&key, "key", "k", "", "rubric key, overriding the file's rubric_key")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// scoreRound evaluates every candidate of rf and ranks them in file order.
func scoreRound(rubric *scoring.Rubric, rf roundFile) (model.Ranking, error) {
	if err := rf.Baseline.Validate(); err != nil {
		return model.Ranking{}, fmt.Errorf("round baseline: %w", err)
	}
	standings := make([]scoring.Standing, 0, len(rf.Candidates))
	composites := make(map[string]scoring.Composite, len(rf.Candidates))
	byCode := make(map[string]candidateFile, len(rf.Candidates))
	for i, c := range rf.Candidates {
		if c.Code == "" {
			c.Code = strconv.Itoa(i + 1)
		}
		if _, dup := byCode[c.Code]; dup {
			return model.Ranking{}, fmt.Errorf("candidate %s: %w", c.Code, model.ErrConflict)
		}
		subs := make([]scoring.Submission, 0, len(c.Evaluations))
		for _, e := range c.Evaluations {
			sub := scoring.Submission{EvaluatorID: e.EvaluatorID, Scores: e.Scores, Comment: e.Comment}
			if err := scoring.ValidateSubmission(sub, rubric.Evaluation()); err != nil {
				return model.Ranking{}, fmt.Errorf("candidate %s evaluator %s: %w", c.Code, e.EvaluatorID, err)
			}
			subs = append(subs, sub)
		}
		comp, err := scoring.Evaluate(rubric, scoring.Input{
			Qualification: c.Qualification,
			Baseline:      rf.Baseline,
			Applicant:     c.Applicant,
			Submissions:   subs,
		})
		if err != nil {
			return model.Ranking{}, fmt.Errorf("candidate %s: %w", c.Code, err)
		}
		byCode[c.Code] = c
		composites[c.Code] = comp
		standings = append(standings, scoring.Standing{ID: c.Code, Seq: int64(i + 1), Score: comp.Total, Provisional: comp.Provisional})
	}

	ranking := model.Ranking{RoundID: rf.RoundID, PositionTitle: rf.PositionTitle, Rows: make([]model.RankingRow, 0, len(standings))}
	for _, ranked := range scoring.Rank(standings) {
		c, comp := byCode[ranked.ID], composites[ranked.ID]
		ranking.Rows = append(ranking.Rows, model.RankingRow{
			Rank:          ranked.Rank,
			CandidateCode: ranked.ID,
			Name:          c.Name,
			Seq:           ranked.Seq,
			Baseline:      comp.Baseline,
			Applicant:     comp.ApplicantTotal,
			Evaluation:    comp.EvaluationTotal,
			Total:         comp.Total,
			Provisional:   comp.Provisional,
			Comments:      fileComments(c.Evaluations),
		})
	}
	return ranking, nil
}

func fileComments(evals []evaluationFile) []string {
	sorted := append([]evaluationFile(nil), evals...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].EvaluatorID < sorted[j].EvaluatorID })
	var out []string
	for _, e := range sorted {
		if e.Comment != "" {
			out = append(out, e.Comment)
		}
	}
	return out
}
