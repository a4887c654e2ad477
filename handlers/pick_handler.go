package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/kuanyshev/lastman-system/middleware"
	"github.com/kuanyshev/lastman-system/services"
)

type PickHandler struct {
	pickService services.PickService
}

func NewPickHandler(ps services.PickService) *PickHandler {
	return &PickHandler{pickService: ps}
}

type savePicksRequest struct {
	RoundID      int                      `json:"round_id,omitempty"`
	TeamID       int                      `json:"team_id,omitempty"`
	IsExternalID bool                     `json:"is_external_id,omitempty"`
	Picks        []services.SavePickInput `json:"picks,omitempty"`
}

type savePickResponse struct {
	RoundID int         `json:"round_id"`
	Pick    interface{} `json:"pick,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// ListHandler обрабатывает GET /api/picks?competition_id=N
func (h *PickHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	competitionID, err := strconv.Atoi(r.URL.Query().Get("competition_id"))
	if err != nil || competitionID < 1 {
		badRequestResponse(w, r, errors.New("invalid or missing 'competition_id' query parameter"))
		return
	}

	picks, err := h.pickService.GetUserPicks(r.Context(), currentUserID, competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"picks": picks}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SaveHandler обрабатывает POST /api/picks: одиночный пик или батч
// {"picks": [...]}. В батче элементы обрабатываются независимо.
func (h *PickHandler) SaveHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to save a pick")
		return
	}

	var req savePicksRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if len(req.Picks) > 0 {
		h.saveBatch(w, r, currentUserID, req.Picks)
		return
	}

	input := services.SavePickInput{
		RoundID:      req.RoundID,
		TeamID:       req.TeamID,
		IsExternalID: req.IsExternalID,
	}

	// Закрытый тур отклоняем до записи; сервис сам разрулит гонку на
	// границе дедлайна.
	if err := h.pickService.EnsureRoundOpen(r.Context(), input.RoundID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	pick, err := h.pickService.SaveUserPick(r.Context(), currentUserID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"pick": pick}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PickHandler) saveBatch(w http.ResponseWriter, r *http.Request, userID int, inputs []services.SavePickInput) {
	// Результаты привязываются к позиции входного элемента, не к round_id:
	// батч может содержать один тур дважды.
	results := make([]savePickResponse, len(inputs))
	open := make([]services.SavePickInput, 0, len(inputs))
	openIndex := make([]int, 0, len(inputs))

	for i, input := range inputs {
		if err := h.pickService.EnsureRoundOpen(r.Context(), input.RoundID); err != nil {
			results[i] = savePickResponse{
				RoundID: input.RoundID,
				Error:   err.Error(),
				Code:    errorCodeFor(err),
			}
			continue
		}
		open = append(open, input)
		openIndex = append(openIndex, i)
	}

	saved := h.pickService.SaveUserPicks(r.Context(), userID, open)
	for j, res := range saved {
		resp := savePickResponse{RoundID: res.RoundID, Pick: res.Pick}
		if res.Err != nil {
			resp.Error = res.Err.Error()
			resp.Code = errorCodeFor(res.Err)
		}
		results[openIndex[j]] = resp
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"results": results}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func errorCodeFor(err error) string {
	switch {
	case errors.Is(err, services.ErrDeadlinePassed):
		return codeDeadlinePassed
	case errors.Is(err, services.ErrGameweekFinished):
		return codeGameweekFinished
	case errors.Is(err, services.ErrRoundNotFound), errors.Is(err, services.ErrTeamNotFound):
		return codeNotFound
	case errors.Is(err, services.ErrRoundIDRequired),
		errors.Is(err, services.ErrTeamIDRequired),
		errors.Is(err, services.ErrValidationFailed):
		return codeValidationError
	default:
		return codeServerError
	}
}
