package handlers

import (
	"net/http"

	"github.com/kuanyshev/lastman-system/services"
)

type RoundHandler struct {
	roundService services.RoundService
}

func NewRoundHandler(rs services.RoundService) *RoundHandler {
	return &RoundHandler{roundService: rs}
}

// ListByCompetitionHandler обрабатывает GET /api/competitions/{competitionID}/rounds
func (h *RoundHandler) ListByCompetitionHandler(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	forceRefresh := r.URL.Query().Get("refresh") == "true"

	rounds, err := h.roundService.GetCompetitionRounds(r.Context(), competitionID, forceRefresh)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"rounds": rounds}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// FixturesHandler обрабатывает GET /api/rounds/{roundID}/fixtures
func (h *RoundHandler) FixturesHandler(w http.ResponseWriter, r *http.Request) {
	roundID, err := getIDFromURL(r, "roundID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	round, err := h.roundService.GetRoundWithFixtures(r.Context(), roundID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"round": round}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
