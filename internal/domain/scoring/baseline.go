package scoring

// RawQualification holds a candidate's three raw qualification values, or a
// round's baseline values of the same kinds.
type RawQualification struct {
	Education  int `json:"education" yaml:"education"`
	Experience int `json:"experience" yaml:"experience"`
	Training   int `json:"training" yaml:"training"`
}

// Get returns the value of kind k.
func (q RawQualification) Get(k Kind) int {
	switch k {
	case Education:
		return q.Education
	case Experience:
		return q.Experience
	case Training:
		return q.Training
	}
	return 0
}

// Validate rejects negative raw values.
func (q RawQualification) Validate() error {
	for _, k := range Kinds() {
		if v := q.Get(k); v < 0 {
			return &OutOfRangeError{Field: string(k), Value: float64(v), Min: 0, Max: float64(maxInt)}
		}
	}
	return nil
}

const maxInt = int(^uint(0) >> 1)

// KindScore is the breakdown of one baseline kind.
type KindScore struct {
	Kind     Kind   `json:"kind"`
	Label    string `json:"label,omitempty"`
	Raw      int    `json:"raw"`
	Baseline int    `json:"baseline"`
	Delta    int    `json:"delta"`
	Level    int    `json:"level"`
	Points   int    `json:"points"`
}

// BaselineScores holds the three weighted baseline sub-scores.
type BaselineScores struct {
	Education  KindScore `json:"education"`
	Experience KindScore `json:"experience"`
	Training   KindScore `json:"training"`
}

// Total sums the three sub-scores.
func (b BaselineScores) Total() int {
	return b.Education.Points + b.Experience.Points + b.Training.Points
}

// LevelPoints converts a bracket level to points: floor(level/step) fifths of
// weight, capped at the full weight. Points scale linearly with the configured
// weight, independent of how many brackets the table has.
func LevelPoints(level, step, weight int) int {
	if step <= 0 {
		step = DefaultBracketStep
	}
	n := level / step
	switch {
	case n < 0:
		n = 0
	case n > fifths:
		n = fifths
	}
	return n * weight / fifths
}

// ScoreKind runs one baseline kind through delta, bracket level and point conversion.
func ScoreKind(raw, baseline int, table BracketTable, weight, step int) (KindScore, error) {
	delta := Delta(raw, baseline)
	level, err := Level(delta, table)
	if err != nil {
		return KindScore{}, err
	}
	return KindScore{
		Raw:      raw,
		Baseline: baseline,
		Delta:    delta,
		Level:    level,
		Points:   LevelPoints(level, step, weight),
	}, nil
}

// ScoreBaseline scores all three kinds of raw against the round baseline.
func ScoreBaseline(raw, baseline RawQualification, r *Rubric) (BaselineScores, error) {
	var out BaselineScores
	for _, k := range Kinds() {
		ks, err := ScoreKind(raw.Get(k), baseline.Get(k), r.Brackets(k), r.Weight(k), r.Step())
		if err != nil {
			return BaselineScores{}, err
		}
		ks.Kind = k
		ks.Label = r.QualificationLabel(k, raw.Get(k))
		switch k {
		case Education:
			out.Education = ks
		case Experience:
			out.Experience = ks
		case Training:
			out.Training = ks
		}
	}
	return out, nil
}
