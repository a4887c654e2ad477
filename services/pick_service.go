package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kuanyshev/lastman-system/live"
	"github.com/kuanyshev/lastman-system/models"
	"github.com/kuanyshev/lastman-system/repositories"
)

// LiveBroadcaster рассылает события в комнату соревнования.
type LiveBroadcaster interface {
	BroadcastToRoom(roomID string, message interface{})
}

type SavePickInput struct {
	RoundID      int  `json:"round_id"`
	TeamID       int  `json:"team_id"`
	IsExternalID bool `json:"is_external_id"`
}

// SavePickResult — результат одного элемента батч-сохранения. Ошибка
// одного пика не прерывает обработку остальных.
type SavePickResult struct {
	RoundID int
	Pick    *models.Pick
	Err     error
}

type PickService interface {
	// LockExpiredPicks переводит pending-пики туров с прошедшим дедлайном
	// в locked. Идемпотентна: повторный запуск без новых истёкших
	// дедлайнов возвращает пустой результат и ничего не пишет.
	LockExpiredPicks(ctx context.Context) ([]models.Pick, error)
	GetUserPicks(ctx context.Context, userID, competitionID int) ([]models.Pick, error)
	// EnsureRoundOpen проверяет, что тур ещё принимает пики. Возвращает
	// ErrDeadlinePassed или ErrGameweekFinished для закрытых туров.
	EnsureRoundOpen(ctx context.Context, roundID int) error
	SaveUserPick(ctx context.Context, userID int, input SavePickInput) (*models.Pick, error)
	SaveUserPicks(ctx context.Context, userID int, inputs []SavePickInput) []SavePickResult
}

type pickService struct {
	pickRepo        repositories.PickRepository
	roundRepo       repositories.RoundRepository
	competitionRepo repositories.CompetitionRepository
	gameweekRepo    repositories.GameweekRepository
	teamRepo        repositories.TeamRepository
	hub             LiveBroadcaster
	logger          *slog.Logger
}

func NewPickService(
	pickRepo repositories.PickRepository,
	roundRepo repositories.RoundRepository,
	competitionRepo repositories.CompetitionRepository,
	gameweekRepo repositories.GameweekRepository,
	teamRepo repositories.TeamRepository,
	hub LiveBroadcaster,
	logger *slog.Logger,
) PickService {
	return &pickService{
		pickRepo:        pickRepo,
		roundRepo:       roundRepo,
		competitionRepo: competitionRepo,
		gameweekRepo:    gameweekRepo,
		teamRepo:        teamRepo,
		hub:             hub,
		logger:          logger,
	}
}

func (s *pickService) LockExpiredPicks(ctx context.Context) ([]models.Pick, error) {
	locked, err := s.pickRepo.LockExpired(ctx, nil, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to lock expired picks: %w", err)
	}
	if len(locked) == 0 {
		return locked, nil
	}

	s.logger.InfoContext(ctx, "locked expired picks", slog.Int("count", len(locked)))
	s.broadcastLocked(ctx, locked)
	return locked, nil
}

// broadcastLocked группирует заблокированные пики по соревнованиям и шлёт
// по событию на комнату. Ошибки здесь не фатальны: уведомление — best effort.
func (s *pickService) broadcastLocked(ctx context.Context, locked []models.Pick) {
	if s.hub == nil {
		return
	}

	countByRound := make(map[int]int)
	for _, p := range locked {
		countByRound[p.RoundID]++
	}

	countByCompetition := make(map[int]int)
	for roundID, count := range countByRound {
		round, err := s.roundRepo.GetByID(ctx, roundID)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to resolve round for lock broadcast",
				slog.Int("round_id", roundID), slog.Any("error", err))
			continue
		}
		countByCompetition[round.CompetitionID] += count
	}

	for competitionID, count := range countByCompetition {
		s.hub.BroadcastToRoom(competitionRoom(competitionID), live.Message{
			Type:   live.EventPicksLocked,
			RoomID: competitionRoom(competitionID),
			Payload: map[string]interface{}{
				"competition_id": competitionID,
				"locked_count":   count,
			},
		})
	}
}

func (s *pickService) GetUserPicks(ctx context.Context, userID, competitionID int) ([]models.Pick, error) {
	// Блокировка просроченных пиков обязана пройти до чтения, чтобы ответ
	// отражал актуальное состояние блокировок.
	if _, err := s.LockExpiredPicks(ctx); err != nil {
		return nil, err
	}

	picks, err := s.pickRepo.ListByUserAndCompetition(ctx, userID, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks for user %d: %w", userID, err)
	}

	teamIDs := make([]int, 0, len(picks))
	for _, p := range picks {
		teamIDs = append(teamIDs, p.TeamID)
	}
	teams, err := s.teamRepo.GetByIDs(ctx, teamIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve pick teams: %w", err)
	}
	for i := range picks {
		if team, ok := teams[picks[i].TeamID]; ok {
			t := team
			picks[i].Team = &t
		}
	}

	return picks, nil
}

func (s *pickService) EnsureRoundOpen(ctx context.Context, roundID int) error {
	round, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return ErrRoundNotFound
		}
		return fmt.Errorf("failed to get round %d: %w", roundID, err)
	}

	if round.DeadlinePassed(time.Now()) {
		return ErrDeadlinePassed
	}

	competition, err := s.competitionRepo.GetByID(ctx, round.CompetitionID)
	if err != nil {
		if errors.Is(err, repositories.ErrCompetitionNotFound) {
			return ErrCompetitionNotFound
		}
		return fmt.Errorf("failed to get competition %d: %w", round.CompetitionID, err)
	}

	gameweek, err := s.gameweekRepo.GetByNumber(ctx, competition.LeagueID, competition.Season, round.RoundNumber)
	if err != nil {
		if errors.Is(err, repositories.ErrGameweekNotFound) {
			// Игровая неделя ещё не загружена — решает только дедлайн тура.
			return nil
		}
		return fmt.Errorf("failed to get gameweek for round %d: %w", roundID, err)
	}
	if gameweek.Finished {
		return ErrGameweekFinished
	}

	return nil
}

func (s *pickService) SaveUserPick(ctx context.Context, userID int, input SavePickInput) (*models.Pick, error) {
	if input.RoundID <= 0 {
		return nil, ErrRoundIDRequired
	}
	if input.TeamID <= 0 {
		return nil, ErrTeamIDRequired
	}

	// Блокировка просроченных пиков выполняется до любой записи,
	// независимо от проверок на клиенте.
	if _, err := s.LockExpiredPicks(ctx); err != nil {
		return nil, err
	}

	round, err := s.roundRepo.GetByID(ctx, input.RoundID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to get round %d: %w", input.RoundID, err)
	}

	team, err := s.resolveTeam(ctx, input.TeamID, input.IsExternalID)
	if err != nil {
		return nil, err
	}

	// Пик, записанный после дедлайна, сразу фиксируется как locked: он не
	// должен остаться редактируемым из-за гонки с проверкой дедлайна.
	status := models.PickPending
	if round.DeadlinePassed(time.Now()) {
		status = models.PickLocked
	}

	pick := &models.Pick{
		UserID:        userID,
		RoundID:       round.ID,
		TeamID:        team.ID,
		Status:        status,
		PickTimestamp: time.Now(),
	}

	if err := s.pickRepo.Upsert(ctx, pick); err != nil {
		switch {
		case errors.Is(err, repositories.ErrPickRoundInvalid):
			return nil, ErrRoundNotFound
		case errors.Is(err, repositories.ErrPickTeamInvalid):
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to save pick for user %d round %d: %w", userID, round.ID, err)
	}

	pick.Team = team
	return pick, nil
}

func (s *pickService) SaveUserPicks(ctx context.Context, userID int, inputs []SavePickInput) []SavePickResult {
	results := make([]SavePickResult, 0, len(inputs))
	for _, input := range inputs {
		pick, err := s.SaveUserPick(ctx, userID, input)
		results = append(results, SavePickResult{
			RoundID: input.RoundID,
			Pick:    pick,
			Err:     err,
		})
	}
	return results
}

func (s *pickService) resolveTeam(ctx context.Context, teamID int, isExternal bool) (*models.Team, error) {
	var team *models.Team
	var err error
	if isExternal {
		team, err = s.teamRepo.GetByExternalID(ctx, teamID)
	} else {
		team, err = s.teamRepo.GetByID(ctx, teamID)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to resolve team %d: %w", teamID, err)
	}
	return team, nil
}
