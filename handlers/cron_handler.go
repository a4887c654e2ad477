package handlers

import (
	"net/http"

	"github.com/kuanyshev/lastman-system/services"
)

// CronHandler — ручные триггеры фоновых задач для внешнего планировщика.
type CronHandler struct {
	gameweekService services.GameweekService
	resultService   services.ResultService
	pickService     services.PickService
}

func NewCronHandler(gs services.GameweekService, rs services.ResultService, ps services.PickService) *CronHandler {
	return &CronHandler{
		gameweekService: gs,
		resultService:   rs,
		pickService:     ps,
	}
}

type updateGameweekStatusRequest struct {
	LeagueID int `json:"league_id"`
	Season   int `json:"season"`
}

// UpdateGameweekStatusHandler обрабатывает POST /api/cron/update-gameweek-status
func (h *CronHandler) UpdateGameweekStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req updateGameweekStatusRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if req.LeagueID < 1 || req.Season < 1 {
		errorResponse(w, r, http.StatusBadRequest, codeValidationError, "league_id and season are required")
		return
	}

	summary, err := h.gameweekService.UpdateGameweekStatus(r.Context(), req.LeagueID, req.Season)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, summary, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ProcessResultsHandler обрабатывает POST /api/cron/process-results
func (h *CronHandler) ProcessResultsHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := h.resultService.ProcessResults(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, summary, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// LockPicksHandler обрабатывает POST /api/cron/lock-picks
func (h *CronHandler) LockPicksHandler(w http.ResponseWriter, r *http.Request) {
	locked, err := h.pickService.LockExpiredPicks(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"locked": len(locked)}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
