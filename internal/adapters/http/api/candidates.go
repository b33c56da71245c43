package api

import (
	"context"
	"net/http"

	model "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/model"
	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
)

// CandidateDependencies defines the candidate operations the handlers need.
type CandidateDependencies interface {
	AddCandidate(ctx context.Context, roundID string, p model.NewCandidateParams) (model.Candidate, error)
	GetCandidate(ctx context.Context, roundID, code string) (model.Candidate, error)
	UpdateQualification(ctx context.Context, roundID, code string, q scoring.RawQualification) error
	SetApplicantScores(ctx context.Context, roundID, code string, raw map[string]float64) (scoring.ApplicantScores, error)
	SubmitEvaluation(ctx context.Context, roundID, code string, sub scoring.Submission) (model.Submission, error)
	Sheet(ctx context.Context, roundID, code string) (model.Sheet, error)
}

// CandidatesHandler handles candidate requests.
type CandidatesHandler struct {
	deps CandidateDependencies
}

// NewCandidatesHandler creates a new candidates handler.
func NewCandidatesHandler(deps CandidateDependencies) *CandidatesHandler {
	return &CandidatesHandler{deps: deps}
}

// HandleAdd handles POST /rounds/{round}/candidates.
func (h *CandidatesHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_candidate"
	var req addCandidateRequest
	if err := decode(op, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	c, err := h.deps.AddCandidate(r.Context(), r.PathValue("round"), req.params())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HandleGet handles GET /rounds/{round}/candidates/{code}.
func (h *CandidatesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.deps.GetCandidate(r.Context(), r.PathValue("round"), r.PathValue("code"))
	if err != nil {
		writeFailure(w, Wrap("api.get_candidate", err))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleQualification handles PUT /rounds/{round}/candidates/{code}/qualification.
func (h *CandidatesHandler) HandleQualification(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_qualification"
	var q scoring.RawQualification
	if err := decode(op, r, &q); err != nil {
		writeFailure(w, err)
		return
	}
	roundID, code := r.PathValue("round"), r.PathValue("code")
	if err := h.deps.UpdateQualification(r.Context(), roundID, code, q); err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	c, err := h.deps.GetCandidate(r.Context(), roundID, code)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type applicantScoresResponse struct {
	Points scoring.ApplicantScores `json:"points"`
	Total  float64                 `json:"total"`
}

// HandleApplicantScores handles PUT /rounds/{round}/candidates/{code}/applicant-scores.
func (h *CandidatesHandler) HandleApplicantScores(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_applicant_scores"
	var req applicantScoresRequest
	if err := decode(op, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	points, err := h.deps.SetApplicantScores(r.Context(), r.PathValue("round"), r.PathValue("code"), req.Scores)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, applicantScoresResponse{Points: points, Total: points.Total()})
}

// HandleEvaluation handles PUT /rounds/{round}/candidates/{code}/evaluations/{evaluator}.
func (h *CandidatesHandler) HandleEvaluation(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_evaluation"
	var req evaluationRequest
	if err := decode(op, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	sub, err := h.deps.SubmitEvaluation(r.Context(), r.PathValue("round"), r.PathValue("code"), scoring.Submission{
		EvaluatorID: r.PathValue("evaluator"),
		Scores:      req.Scores,
		Comment:     req.Comment,
	})
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// HandleSheet handles GET /rounds/{round}/candidates/{code}/sheet.
func (h *CandidatesHandler) HandleSheet(w http.ResponseWriter, r *http.Request) {
	sheet, err := h.deps.Sheet(r.Context(), r.PathValue("round"), r.PathValue("code"))
	if err != nil {
		writeFailure(w, Wrap("api.sheet", err))
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}
