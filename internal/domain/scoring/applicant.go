package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// round2 rounds to the two decimal places used by every weighted conversion.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// ScoreApplicantField rescales raw from [0, maxValue] onto [0, weight].
// Unlike bracket lookups it does not saturate: raw outside the range is rejected.
func ScoreApplicantField(raw, maxValue, weight float64) (float64, error) {
	if !(maxValue > 0) {
		return 0, configErrorf("applicant field max %g must be positive", maxValue)
	}
	if !(raw >= 0 && raw <= maxValue) {
		return 0, &OutOfRangeError{Field: "applicant", Value: raw, Min: 0, Max: maxValue}
	}
	return round2(raw / maxValue * weight), nil
}

// ApplicantScores maps auxiliary field name to points.
type ApplicantScores map[string]float64

// Total sums the points in name order so the result is reproducible.
func (a ApplicantScores) Total() float64 {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	var sum float64
	for _, name := range names {
		sum += a[name]
	}
	return round2(sum)
}

// ScoreApplicant scores every entered auxiliary value. Fields the candidate
// has no value for are left out. Any invalid value rejects the whole set.
func ScoreApplicant(raw map[string]float64, r *Rubric) (ApplicantScores, error) {
	out := make(ApplicantScores, len(raw))
	var errs []error
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f, ok := r.ApplicantField(name)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: applicant field %q", ErrUnknownField, name))
			continue
		}
		pts, err := ScoreApplicantField(raw[name], f.MaxScore, f.Weight)
		if err != nil {
			var oor *OutOfRangeError
			if errors.As(err, &oor) {
				oor.Field = name
			}
			errs = append(errs, err)
			continue
		}
		out[name] = pts
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}
