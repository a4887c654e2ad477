package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/kuanyshev/lastman-system/db"
	"github.com/kuanyshev/lastman-system/live"
	"github.com/kuanyshev/lastman-system/models"
	"github.com/kuanyshev/lastman-system/repositories"
)

const (
	gameweekJobName = "update_gameweek_status"

	// Если после дедлайна последней прошедшей недели прошло больше недели,
	// сезон считается завершённым: текущей недели нет, все помечаются finished.
	gameweekStaleness = 7 * 24 * time.Hour
)

// GameweekRunSummary — итог одного прогона обновления флагов.
type GameweekRunSummary struct {
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

type GameweekService interface {
	// UpdateGameweekStatus пересчитывает флаги is_current/is_next/is_previous/
	// finished для всех игровых недель лиги и сезона. Каждый запуск полностью
	// перезаписывает флаги, частичное состояние между запусками не переносится.
	UpdateGameweekStatus(ctx context.Context, leagueID, season int) (*GameweekRunSummary, error)
}

type gameweekService struct {
	dbConn          *sql.DB
	gameweekRepo    repositories.GameweekRepository
	competitionRepo repositories.CompetitionRepository
	hub             LiveBroadcaster
	logger          *slog.Logger
	now             func() time.Time
}

func NewGameweekService(
	dbConn *sql.DB,
	gameweekRepo repositories.GameweekRepository,
	competitionRepo repositories.CompetitionRepository,
	hub LiveBroadcaster,
	logger *slog.Logger,
) GameweekService {
	return &gameweekService{
		dbConn:          dbConn,
		gameweekRepo:    gameweekRepo,
		competitionRepo: competitionRepo,
		hub:             hub,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *gameweekService) UpdateGameweekStatus(ctx context.Context, leagueID, season int) (*GameweekRunSummary, error) {
	if s.dbConn != nil {
		lock, err := db.TryJobLock(ctx, s.dbConn, gameweekJobName)
		if err != nil {
			return nil, err
		}
		if lock == nil {
			return nil, ErrJobAlreadyRunning
		}
		defer func() {
			if releaseErr := lock.Release(context.WithoutCancel(ctx)); releaseErr != nil {
				s.logger.ErrorContext(ctx, "failed to release job lock", slog.Any("error", releaseErr))
			}
		}()
	}

	gameweeks, err := s.gameweekRepo.ListByLeagueSeason(ctx, leagueID, season)
	if err != nil {
		return nil, fmt.Errorf("failed to list gameweeks for league %d season %d: %w", leagueID, season, err)
	}
	if len(gameweeks) == 0 {
		return &GameweekRunSummary{}, nil
	}

	ComputeGameweekFlags(gameweeks, s.now())

	summary := &GameweekRunSummary{}
	for i := range gameweeks {
		if err := s.gameweekRepo.UpdateFlags(ctx, nil, &gameweeks[i]); err != nil {
			summary.Failed++
			s.logger.ErrorContext(ctx, "failed to update gameweek flags",
				slog.Int("gameweek_id", gameweeks[i].ID), slog.Any("error", err))
			continue
		}
		summary.Updated++
	}

	s.logger.InfoContext(ctx, "gameweek status run finished",
		slog.Int("league_id", leagueID), slog.Int("season", season),
		slog.Int("updated", summary.Updated), slog.Int("failed", summary.Failed))

	s.broadcastUpdate(ctx, leagueID, season)
	return summary, nil
}

// ComputeGameweekFlags пересчитывает флаги на месте. Недели должны быть
// отсортированы по deadline_time по возрастанию.
func ComputeGameweekFlags(gameweeks []models.Gameweek, now time.Time) {
	if len(gameweeks) == 0 {
		return
	}

	for i := range gameweeks {
		gameweeks[i].IsCurrent = false
		gameweeks[i].IsNext = false
		gameweeks[i].IsPrevious = false
		gameweeks[i].Finished = false
	}

	// Текущая — первая неделя с ещё не прошедшим дедлайном. Если таких нет,
	// текущей остаётся последняя прошедшая, пока она не устарела.
	current := -1
	for i := range gameweeks {
		if !gameweeks[i].DeadlineTime.Before(now) {
			current = i
			break
		}
	}
	if current == -1 {
		last := len(gameweeks) - 1
		if now.Sub(gameweeks[last].DeadlineTime) <= gameweekStaleness {
			current = last
		}
	}

	if current == -1 {
		// Сезон завершён.
		for i := range gameweeks {
			gameweeks[i].Finished = true
		}
		return
	}

	gameweeks[current].IsCurrent = true
	if current > 0 {
		gameweeks[current-1].IsPrevious = true
	}
	for i := 0; i < current; i++ {
		gameweeks[i].Finished = true
	}
	if current+1 < len(gameweeks) {
		gameweeks[current+1].IsNext = true
	}
}

func (s *gameweekService) broadcastUpdate(ctx context.Context, leagueID, season int) {
	if s.hub == nil {
		return
	}
	competitions, err := s.competitionRepo.List(ctx, repositories.ListCompetitionsFilter{
		LeagueID: &leagueID,
		Season:   &season,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list competitions for broadcast", slog.Any("error", err))
		return
	}
	for _, competition := range competitions {
		s.hub.BroadcastToRoom(competitionRoom(competition.ID), live.Message{
			Type:   live.EventGameweekUpdated,
			RoomID: competitionRoom(competition.ID),
			Payload: map[string]interface{}{
				"competition_id": competition.ID,
				"league_id":      leagueID,
				"season":         season,
			},
		})
	}
}
