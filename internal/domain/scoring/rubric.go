package scoring

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Default rubric configuration constants.
const (
	DefaultBaselineWeight = 10
	DefaultBracketStep    = 5
	DefaultMaxComposite   = 100
	// fifths is the number of steps a baseline weight is divided into.
	fifths = 5

	weightTolerance = 1e-9
)

// Kind names one of the three baseline qualifications.
type Kind string

// Baseline qualification kinds.
const (
	Education  Kind = "education"
	Experience Kind = "experience"
	Training   Kind = "training"
)

// Kinds returns the baseline kinds in their canonical order.
func Kinds() []Kind { return []Kind{Education, Experience, Training} }

func validKind(k Kind) bool {
	return k == Education || k == Experience || k == Training
}

// RubricSpec is the external configuration payload of a rubric. It is decoded
// from JSON or YAML and turned into an immutable Rubric by NewRubric.
type RubricSpec struct {
	Key          string                           `json:"key" yaml:"key" validate:"required"`
	Label        string                           `json:"label,omitempty" yaml:"label,omitempty"`
	MaxComposite float64                          `json:"max_composite,omitempty" yaml:"max_composite,omitempty" validate:"gte=0"`
	Step         int                              `json:"step,omitempty" yaml:"step,omitempty" validate:"gte=0"`
	Weights      map[Kind]int                     `json:"baseline_weights,omitempty" yaml:"baseline_weights,omitempty" validate:"omitempty,dive,gte=0"`
	Increments   map[Kind]map[string]BracketEntry `json:"increments" yaml:"increments" validate:"required"`
	Labels       map[Kind]map[string]string       `json:"labels,omitempty" yaml:"labels,omitempty"`
	Applicant    map[string]ApplicantFieldSpec    `json:"applicant" yaml:"applicant" validate:"required,dive"`
	Evaluation   map[string]CategorySpec          `json:"evaluation" yaml:"evaluation" validate:"required,min=1,dive"`
}

// ApplicantFieldSpec declares one admin-entered auxiliary score.
type ApplicantFieldSpec struct {
	Label    string  `json:"LABEL,omitempty" yaml:"LABEL,omitempty"`
	Weight   float64 `json:"WEIGHT" yaml:"WEIGHT" validate:"gte=0"`
	MaxScore float64 `json:"MAX_SCORE" yaml:"MAX_SCORE" validate:"gt=0"`
}

// CategorySpec declares one rater category: its criteria with their maxima,
// the declared raw total and the weight it contributes.
type CategorySpec struct {
	Criteria map[string]float64 `json:"criteria" yaml:"criteria" validate:"required,min=1,dive,gt=0"`
	Total    float64            `json:"TOTAL" yaml:"TOTAL" validate:"gt=0"`
	Weight   float64            `json:"WEIGHT" yaml:"WEIGHT" validate:"gte=0"`
}

// ApplicantField is a validated auxiliary field.
type ApplicantField struct {
	Name     string
	Label    string
	Weight   float64
	MaxScore float64
}

// Criterion is one rater-scored item inside a category.
type Criterion struct {
	Name string
	Max  float64
}

// Category is a validated rater category with criteria sorted by name.
type Category struct {
	Name     string
	Criteria []Criterion
	Total    float64
	Weight   float64
}

// EvaluationStructure is the set of rater categories, sorted by name.
type EvaluationStructure struct {
	Categories []Category
}

// Category returns the named category.
func (s EvaluationStructure) Category(name string) (Category, bool) {
	for _, c := range s.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// Weight returns the sum of category weights.
func (s EvaluationStructure) Weight() float64 {
	var w float64
	for _, c := range s.Categories {
		w += c.Weight
	}
	return w
}

// Rubric is the immutable, validated scoring configuration of one round.
type Rubric struct {
	key          string
	label        string
	maxComposite float64
	step         int
	weights      map[Kind]int
	brackets     map[Kind]BracketTable
	labels       map[Kind]map[string]string
	applicant    []ApplicantField
	evaluation   EvaluationStructure
	spec         RubricSpec
}

// RubricOption configures how NewRubric fills defaults and validates.
type RubricOption func(*rubricOptions)

type rubricOptions struct {
	defaultWeight int
	step          int
	maxComposite  float64
	requireTotal  bool
}

// WithDefaultBaselineWeight sets the weight used for a baseline kind a RubricSpec omits.
func WithDefaultBaselineWeight(weight int) RubricOption {
	return func(o *rubricOptions) {
		if weight >= 0 {
			o.defaultWeight = weight
		}
	}
}

// WithBracketStep sets the level-to-fifths step used when a RubricSpec omits one.
func WithBracketStep(step int) RubricOption {
	return func(o *rubricOptions) {
		if step > 0 {
			o.step = step
		}
	}
}

// WithMaxComposite sets the composite ceiling used when a RubricSpec omits one.
func WithMaxComposite(ceiling float64) RubricOption {
	return func(o *rubricOptions) {
		if ceiling > 0 {
			o.maxComposite = ceiling
		}
	}
}

// WithWeightTotalCheck makes NewRubric require that all declared weights sum
// to the composite ceiling.
func WithWeightTotalCheck(enabled bool) RubricOption {
	return func(o *rubricOptions) {
		o.requireTotal = enabled
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// NewRubric validates spec and returns the immutable Rubric. On failure the
// error is an *InvalidRubricError listing every violation found.
func NewRubric(spec RubricSpec, opts ...RubricOption) (*Rubric, error) {
	o := rubricOptions{
		defaultWeight: DefaultBaselineWeight,
		step:          DefaultBracketStep,
		maxComposite:  DefaultMaxComposite,
	}
	for _, opt := range opts {
		opt(&o)
	}

	var violations []Violation
	if err := validate.Struct(spec); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("validate rubric %q: %w", spec.Key, err)
		}
		for _, fe := range verrs {
			violations = append(violations, fieldViolation(fe))
		}
	}

	r := &Rubric{
		key:          spec.Key,
		label:        spec.Label,
		maxComposite: spec.MaxComposite,
		step:         spec.Step,
		weights:      make(map[Kind]int, len(Kinds())),
		brackets:     make(map[Kind]BracketTable, len(Kinds())),
		labels:       make(map[Kind]map[string]string, len(spec.Labels)),
	}
	if r.maxComposite == 0 {
		r.maxComposite = o.maxComposite
	}
	if r.step == 0 {
		r.step = o.step
	}

	for k := range spec.Weights {
		if !validKind(k) {
			violations = append(violations, Violation{Field: "baseline_weights." + string(k), Message: "unknown qualification kind"})
		}
	}
	for k := range spec.Increments {
		if !validKind(k) {
			violations = append(violations, Violation{Field: "increments." + string(k), Message: "unknown qualification kind"})
		}
	}
	for k, table := range spec.Labels {
		if !validKind(k) {
			violations = append(violations, Violation{Field: "labels." + string(k), Message: "unknown qualification kind"})
			continue
		}
		cp := make(map[string]string, len(table))
		for raw, label := range table {
			cp[raw] = label
		}
		r.labels[k] = cp
	}

	for _, k := range Kinds() {
		w, ok := spec.Weights[k]
		if !ok {
			w = o.defaultWeight
		}
		r.weights[k] = w

		entries, ok := spec.Increments[k]
		if !ok {
			if spec.Increments != nil {
				violations = append(violations, Violation{Field: "increments." + string(k), Message: "missing bracket table"})
			}
			continue
		}
		table, err := NewBracketTable(entries)
		if err != nil {
			var cerr *ConfigError
			msg := err.Error()
			if errors.As(err, &cerr) {
				msg = cerr.Msg
			}
			violations = append(violations, Violation{Field: "increments." + string(k), Message: msg})
			continue
		}
		r.brackets[k] = table
	}

	names := make([]string, 0, len(spec.Applicant))
	for name := range spec.Applicant {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := spec.Applicant[name]
		r.applicant = append(r.applicant, ApplicantField{Name: name, Label: f.Label, Weight: f.Weight, MaxScore: f.MaxScore})
	}

	categories := make([]string, 0, len(spec.Evaluation))
	for name := range spec.Evaluation {
		categories = append(categories, name)
	}
	sort.Strings(categories)
	for _, name := range categories {
		cs := spec.Evaluation[name]
		c := Category{Name: name, Total: cs.Total, Weight: cs.Weight}
		criteria := make([]string, 0, len(cs.Criteria))
		for crit := range cs.Criteria {
			criteria = append(criteria, crit)
		}
		sort.Strings(criteria)
		for _, crit := range criteria {
			c.Criteria = append(c.Criteria, Criterion{Name: crit, Max: cs.Criteria[crit]})
		}
		r.evaluation.Categories = append(r.evaluation.Categories, c)
	}

	if o.requireTotal {
		if sum := r.WeightTotal(); math.Abs(sum-r.maxComposite) > weightTolerance {
			violations = append(violations, Violation{
				Field:   "weights",
				Message: fmt.Sprintf("declared weights sum to %g, want %g", sum, r.maxComposite),
			})
		}
	}

	if len(violations) > 0 {
		sort.SliceStable(violations, func(i, j int) bool { return violations[i].Field < violations[j].Field })
		return nil, &InvalidRubricError{Key: spec.Key, Violations: violations}
	}

	r.spec = r.normalizedSpec(spec)
	return r, nil
}

func fieldViolation(fe validator.FieldError) Violation {
	field := strings.TrimPrefix(fe.Namespace(), "RubricSpec.")
	var msg string
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "min":
		msg = "must have at least " + fe.Param() + " entry"
	case "gt":
		msg = "must be greater than " + fe.Param()
	case "gte":
		msg = "must not be negative"
	default:
		msg = "failed " + fe.Tag() + " check"
	}
	return Violation{Field: field, Message: msg}
}

// normalizedSpec returns spec with defaults filled in, so a stored copy
// rebuilds the same Rubric regardless of later default changes.
func (r *Rubric) normalizedSpec(spec RubricSpec) RubricSpec {
	out := spec
	out.MaxComposite = r.maxComposite
	out.Step = r.step
	out.Weights = make(map[Kind]int, len(r.weights))
	for k, w := range r.weights {
		out.Weights[k] = w
	}
	return out
}

// Key returns the rubric set key (round type) this rubric was declared under.
func (r *Rubric) Key() string { return r.key }

// Label returns the human-readable rubric name.
func (r *Rubric) Label() string { return r.label }

// MaxComposite returns the composite ceiling.
func (r *Rubric) MaxComposite() float64 { return r.maxComposite }

// Step returns the bracket granularity step.
func (r *Rubric) Step() int { return r.step }

// Weight returns the baseline weight of kind k.
func (r *Rubric) Weight(k Kind) int { return r.weights[k] }

// Brackets returns the bracket table of kind k.
func (r *Rubric) Brackets(k Kind) BracketTable { return r.brackets[k] }

// QualificationLabel returns the label declared for a raw value of kind k, if any.
func (r *Rubric) QualificationLabel(k Kind, raw int) string {
	return r.labels[k][strconv.Itoa(raw)]
}

// ApplicantFields returns the auxiliary fields sorted by name.
func (r *Rubric) ApplicantFields() []ApplicantField {
	out := make([]ApplicantField, len(r.applicant))
	copy(out, r.applicant)
	return out
}

// ApplicantField returns the named auxiliary field.
func (r *Rubric) ApplicantField(name string) (ApplicantField, bool) {
	for _, f := range r.applicant {
		if f.Name == name {
			return f, true
		}
	}
	return ApplicantField{}, false
}

// Evaluation returns the rater structure.
func (r *Rubric) Evaluation() EvaluationStructure {
	cats := make([]Category, len(r.evaluation.Categories))
	for i, c := range r.evaluation.Categories {
		c.Criteria = append([]Criterion(nil), c.Criteria...)
		cats[i] = c
	}
	return EvaluationStructure{Categories: cats}
}

// WeightTotal sums baseline, applicant and evaluation weights.
func (r *Rubric) WeightTotal() float64 {
	var sum float64
	for _, w := range r.weights {
		sum += float64(w)
	}
	for _, f := range r.applicant {
		sum += f.Weight
	}
	return sum + r.evaluation.Weight()
}

// Spec returns the normalized configuration the rubric was built from.
func (r *Rubric) Spec() RubricSpec { return r.spec }

// RubricSet holds the rubrics available to new rounds, keyed by round type.
// It is built once and passed explicitly; a round picks its rubric at creation.
type RubricSet struct {
	byKey map[string]*Rubric
}

// NewRubricSet validates every spec. All failures are joined into the returned error.
func NewRubricSet(specs []RubricSpec, opts ...RubricOption) (*RubricSet, error) {
	set := &RubricSet{byKey: make(map[string]*Rubric, len(specs))}
	var errs []error
	for _, spec := range specs {
		if _, dup := set.byKey[spec.Key]; dup && spec.Key != "" {
			errs = append(errs, configErrorf("duplicate rubric key %q", spec.Key))
			continue
		}
		r, err := NewRubric(spec, opts...)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		set.byKey[r.Key()] = r
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return set, nil
}

// Lookup returns the rubric declared under key.
func (s *RubricSet) Lookup(key string) (*Rubric, error) {
	r, ok := s.byKey[key]
	if !ok {
		return nil, configErrorf("unknown rubric key %q", key)
	}
	return r, nil
}

// Keys returns the declared keys in sorted order.
func (s *RubricSet) Keys() []string {
	keys := make([]string, 0, len(s.byKey))
	for k := range s.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
