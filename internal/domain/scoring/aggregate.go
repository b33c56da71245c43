package scoring

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Submission is one evaluator's raw criterion values for one candidate.
// Scores maps category name to criterion name to raw value.
type Submission struct {
	EvaluatorID string                        `json:"evaluator_id"`
	Revision    int                           `json:"revision"`
	Scores      map[string]map[string]float64 `json:"scores"`
	Comment     string                        `json:"comment,omitempty"`
}

// ValidateSubmission checks sub against the evaluation structure. Every
// declared criterion must be present with a value in (0, max]; zero means
// "not yet rated" and is rejected. All problems are joined into one error.
func ValidateSubmission(sub Submission, s EvaluationStructure) error {
	var errs []error
	if sub.EvaluatorID == "" {
		errs = append(errs, fmt.Errorf("%w: evaluator id is empty", ErrUnknownField))
	}
	for cat := range sub.Scores {
		if _, ok := s.Category(cat); !ok {
			errs = append(errs, fmt.Errorf("%w: category %q", ErrUnknownField, cat))
		}
	}
	for _, c := range s.Categories {
		values := sub.Scores[c.Name]
		declared := make(map[string]struct{}, len(c.Criteria))
		for _, crit := range c.Criteria {
			declared[crit.Name] = struct{}{}
			v := values[crit.Name]
			if !(v > 0 && v <= crit.Max) {
				errs = append(errs, &OutOfRangeError{
					Field:        c.Name + "." + crit.Name,
					Value:        v,
					Min:          0,
					Max:          crit.Max,
					MinExclusive: true,
				})
			}
		}
		for name := range values {
			if _, ok := declared[name]; !ok {
				errs = append(errs, fmt.Errorf("%w: criterion %q in category %q", ErrUnknownField, name, c.Name))
			}
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// CategoryScore is the aggregated result of one rater category.
type CategoryScore struct {
	Name string `json:"name"`
	// RawMean is the mean over evaluators of each evaluator's category raw total.
	RawMean float64 `json:"raw_mean"`
	Score   float64 `json:"score"`
	Weight  float64 `json:"weight"`
}

// Evaluation is the aggregate of all evaluators for one candidate. When no
// evaluator has submitted, Graded is false and there are no category scores.
type Evaluation struct {
	Graded     bool            `json:"graded"`
	Raters     int             `json:"raters"`
	Categories []CategoryScore `json:"categories,omitempty"`
	Subtotal   float64         `json:"subtotal"`
}

// Total returns the evaluation subtotal, or ErrUngraded when nobody has scored yet.
func (e Evaluation) Total() (float64, error) {
	if !e.Graded {
		return 0, ErrUngraded
	}
	return e.Subtotal, nil
}

// latestPerEvaluator keeps the highest revision for each evaluator and
// returns them ordered by evaluator id. Two submissions sharing a revision
// resolve by their canonical content, so input order never matters.
func latestPerEvaluator(subs []Submission) []Submission {
	latest := make(map[string]Submission, len(subs))
	for _, s := range subs {
		if cur, ok := latest[s.EvaluatorID]; ok && !supersedes(s, cur) {
			continue
		}
		latest[s.EvaluatorID] = s
	}
	out := make([]Submission, 0, len(latest))
	for _, s := range latest {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EvaluatorID < out[j].EvaluatorID })
	return out
}

// supersedes reports whether a replaces b as the evaluator's submission.
func supersedes(a, b Submission) bool {
	if a.Revision != b.Revision {
		return a.Revision > b.Revision
	}
	return canonical(a) > canonical(b)
}

// canonical renders a submission's scores and comment in sorted order.
func canonical(s Submission) string {
	var b strings.Builder
	cats := make([]string, 0, len(s.Scores))
	for cat := range s.Scores {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	for _, cat := range cats {
		crits := make([]string, 0, len(s.Scores[cat]))
		for crit := range s.Scores[cat] {
			crits = append(crits, crit)
		}
		sort.Strings(crits)
		for _, crit := range crits {
			b.WriteString(cat)
			b.WriteByte(0)
			b.WriteString(crit)
			b.WriteByte('=')
			b.WriteString(strconv.FormatFloat(s.Scores[cat][crit], 'g', -1, 64))
			b.WriteByte(0)
		}
	}
	b.WriteString(s.Comment)
	return b.String()
}

// Aggregate combines evaluator submissions into per-category scores and a subtotal.
//
// For each category the raw totals of every evaluator are summed, divided by
// the number of evaluators, divided by the declared category total, scaled
// by the category weight and rounded to two places. That is a mean of sums,
// not a mean of already-weighted per-evaluator scores.
//
// Zero submissions yields an ungraded Evaluation and no error. The result
// does not depend on the order of subs.
func Aggregate(subs []Submission, s EvaluationStructure) (Evaluation, error) {
	if len(subs) == 0 {
		return Evaluation{}, nil
	}
	latest := latestPerEvaluator(subs)
	for _, sub := range latest {
		if err := ValidateSubmission(sub, s); err != nil {
			return Evaluation{}, fmt.Errorf("evaluator %s: %w", sub.EvaluatorID, err)
		}
	}

	n := float64(len(latest))
	out := Evaluation{Graded: true, Raters: len(latest)}
	var subtotal float64
	for _, c := range s.Categories {
		if !(c.Total > 0) {
			return Evaluation{}, configErrorf("category %q declares non-positive total %g", c.Name, c.Total)
		}
		var sum float64
		for _, sub := range latest {
			values := sub.Scores[c.Name]
			for _, crit := range c.Criteria {
				sum += values[crit.Name]
			}
		}
		mean := sum / n
		score := round2(mean / c.Total * c.Weight)
		out.Categories = append(out.Categories, CategoryScore{
			Name:    c.Name,
			RawMean: round2(mean),
			Score:   score,
			Weight:  c.Weight,
		})
		subtotal += score
	}
	out.Subtotal = round2(subtotal)
	return out, nil
}
