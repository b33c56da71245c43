// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	model "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/model"
	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
	"github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/types"
	"github.com/Aimisnotavailable/DEPEDHRMPSB/pkg/logger"
)

const (
	defaultMaxLimit = 1000
	maxBodyBytes    = 1 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RoundDependencies
	CandidateDependencies
	LeaderboardDependencies
	StatsProvider
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	roundsHandler      *RoundsHandler
	candidatesHandler  *CandidatesHandler
	leaderboardHandler *LeaderboardHandler
	logger             logger.Logger
}

// Option configures the Server.
type Option func(*serverOptions)

type serverOptions struct {
	maxLimit int
	logger   logger.Logger
}

// WithMaxLimit caps the leaderboard limit parameter.
func WithMaxLimit(n int) Option {
	return func(o *serverOptions) {
		if n > 0 {
			o.maxLimit = n
		}
	}
}

// WithLogger sets the logger used for request failures.
func WithLogger(l logger.Logger) Option {
	return func(o *serverOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	o := serverOptions{maxLimit: defaultMaxLimit}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("api")
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		roundsHandler:      NewRoundsHandler(deps),
		candidatesHandler:  NewCandidatesHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, o.maxLimit),
		logger:             o.logger,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, RecoverMiddleware(MetricsMiddleware(h, endpoint), s.logger))
	}

	route("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	route("GET /stats", "stats", s.statsHandler.HandleStats)

	route("POST /rounds", "rounds", s.roundsHandler.HandleCreate)
	route("GET /rounds", "rounds", s.roundsHandler.HandleList)
	route("GET /rounds/{round}", "round", s.roundsHandler.HandleGet)
	route("POST /rounds/{round}/close", "round_close", s.roundsHandler.HandleClose)
	route("PUT /rounds/{round}/rubric", "round_rubric", s.roundsHandler.HandleReplaceRubric)
	route("GET /rounds/{round}/ranking", "ranking", s.roundsHandler.HandleRanking)
	route("GET /rounds/{round}/leaderboard", "leaderboard", s.leaderboardHandler.HandleGetLeaderboard)

	route("POST /rounds/{round}/candidates", "candidates", s.candidatesHandler.HandleAdd)
	route("GET /rounds/{round}/candidates/{code}", "candidate", s.candidatesHandler.HandleGet)
	route("PUT /rounds/{round}/candidates/{code}/qualification", "qualification", s.candidatesHandler.HandleQualification)
	route("PUT /rounds/{round}/candidates/{code}/applicant-scores", "applicant_scores", s.candidatesHandler.HandleApplicantScores)
	route("PUT /rounds/{round}/candidates/{code}/evaluations/{evaluator}", "evaluation", s.candidatesHandler.HandleEvaluation)
	route("GET /rounds/{round}/candidates/{code}/sheet", "sheet", s.candidatesHandler.HandleSheet)
	route("GET /rounds/{round}/candidates/{code}/rank", "rank", s.leaderboardHandler.HandleGetRank)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure reports err with the status its kind maps to. Round-closed
// errors keep their own message so clients see the round and operation.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	var closed *model.RoundClosedError
	if errors.As(err, &closed) {
		writeError(w, status, code, closed)
		return
	}
	writeError(w, status, code, err)
}

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return v
}()

// decode reads a JSON body into dst and validates its tags.
func decode(op string, r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return WrapKind(op, ErrBadRequest, fmt.Errorf("decode body: %w", err))
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return WrapKind(op, ErrBadRequest, errors.New(strings.Join(fields, ", ")))
		}
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}

// Request bodies.

type createRoundRequest struct {
	ID            string                   `json:"id,omitempty" validate:"max=64"`
	RubricKey     string                   `json:"rubric_key,omitempty" validate:"required_without=Rubric"`
	PositionTitle string                   `json:"position_title" validate:"required,max=200"`
	SalaryGrade   int                      `json:"salary_grade,omitempty"`
	Baseline      scoring.RawQualification `json:"baseline"`
	Rubric        *scoring.RubricSpec      `json:"rubric,omitempty" validate:"-"`
}

func (c createRoundRequest) params() model.NewRoundRequest {
	return model.NewRoundRequest{
		NewRoundParams: model.NewRoundParams{
			ID:            c.ID,
			RubricKey:     c.RubricKey,
			PositionTitle: c.PositionTitle,
			SalaryGrade:   c.SalaryGrade,
			Baseline:      c.Baseline,
		},
		Rubric: c.Rubric,
	}
}

type rubricRequest struct {
	RubricKey string              `json:"rubric_key,omitempty" validate:"required_without=Rubric"`
	Rubric    *scoring.RubricSpec `json:"rubric,omitempty" validate:"-"`
}

type addCandidateRequest struct {
	Code          string                   `json:"code,omitempty" validate:"max=64"`
	Name          string                   `json:"name" validate:"required,max=200"`
	Qualification scoring.RawQualification `json:"qualification"`
}

func (a addCandidateRequest) params() model.NewCandidateParams {
	return model.NewCandidateParams{Code: a.Code, Name: a.Name, Qualification: a.Qualification}
}

type applicantScoresRequest struct {
	Scores map[string]float64 `json:"scores" validate:"required,min=1"`
}

type evaluationRequest struct {
	Scores  map[string]map[string]float64 `json:"scores" validate:"required,min=1"`
	Comment string                        `json:"comment,omitempty" validate:"max=2000"`
}
