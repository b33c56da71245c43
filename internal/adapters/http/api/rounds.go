package api

import (
	"context"
	"net/http"

	model "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/model"
	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
)

// RoundDependencies defines the round operations the handlers need.
type RoundDependencies interface {
	CreateRound(ctx context.Context, req model.NewRoundRequest) (model.Round, error)
	GetRound(ctx context.Context, roundID string) (model.Round, error)
	ListRounds(ctx context.Context) ([]model.Round, error)
	CloseRound(ctx context.Context, roundID string) (model.Round, error)
	ReplaceRubric(ctx context.Context, roundID, key string, inline *scoring.RubricSpec) (model.Round, error)
	Ranking(ctx context.Context, roundID string) (model.Ranking, error)
}

// RoundsHandler handles round requests.
type RoundsHandler struct {
	deps RoundDependencies
}

// NewRoundsHandler creates a new rounds handler.
func NewRoundsHandler(deps RoundDependencies) *RoundsHandler {
	return &RoundsHandler{deps: deps}
}

// HandleCreate handles POST /rounds.
func (h *RoundsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_round"
	var req createRoundRequest
	if err := decode(op, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	round, err := h.deps.CreateRound(r.Context(), req.params())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, round)
}

// HandleList handles GET /rounds.
func (h *RoundsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	rounds, err := h.deps.ListRounds(r.Context())
	if err != nil {
		writeFailure(w, Wrap("api.list_rounds", err))
		return
	}
	if rounds == nil {
		rounds = []model.Round{}
	}
	writeJSON(w, http.StatusOK, rounds)
}

// HandleGet handles GET /rounds/{round}.
func (h *RoundsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	round, err := h.deps.GetRound(r.Context(), r.PathValue("round"))
	if err != nil {
		writeFailure(w, Wrap("api.get_round", err))
		return
	}
	writeJSON(w, http.StatusOK, round)
}

// HandleClose handles POST /rounds/{round}/close. Closing twice is not an error.
func (h *RoundsHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	round, err := h.deps.CloseRound(r.Context(), r.PathValue("round"))
	if err != nil {
		writeFailure(w, Wrap("api.close_round", err))
		return
	}
	writeJSON(w, http.StatusOK, round)
}

// HandleReplaceRubric handles PUT /rounds/{round}/rubric.
func (h *RoundsHandler) HandleReplaceRubric(w http.ResponseWriter, r *http.Request) {
	const op = "api.replace_rubric"
	var req rubricRequest
	if err := decode(op, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	round, err := h.deps.ReplaceRubric(r.Context(), r.PathValue("round"), req.RubricKey, req.Rubric)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, round)
}

// HandleRanking handles GET /rounds/{round}/ranking.
func (h *RoundsHandler) HandleRanking(w http.ResponseWriter, r *http.Request) {
	ranking, err := h.deps.Ranking(r.Context(), r.PathValue("round"))
	if err != nil {
		writeFailure(w, Wrap("api.ranking", err))
		return
	}
	if ranking.Rows == nil {
		ranking.Rows = []model.RankingRow{}
	}
	writeJSON(w, http.StatusOK, ranking)
}
