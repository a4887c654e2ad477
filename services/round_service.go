package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kuanyshev/lastman-system/cache"
	"github.com/kuanyshev/lastman-system/models"
	"github.com/kuanyshev/lastman-system/repositories"
)

// ClassifierConfig задаёт оба параметра отбора туров. Окно и горизонт —
// намеренно независимые правила: окно считается в турах после текущего,
// горизонт — по времени до дедлайна.
type ClassifierConfig struct {
	Window  int
	Horizon time.Duration
}

// ClassifyRounds помечает каждый тур статусом относительно "сейчас" и
// флагом доступности для выбора. Чистая функция: вход не мутируется.
//
// Правила:
//   - дедлайн прошёл (включая точное равенство) — тур PAST, всегда;
//   - первый тур с будущим дедлайном — CURRENT;
//   - следующие Window туров — UPCOMING, дальше FUTURE;
//   - выбирать можно CURRENT и UPCOMING туры, и только если их дедлайн
//     попадает в Horizon от "сейчас" (Horizon <= 0 отключает ограничение).
func ClassifyRounds(rounds []models.Round, now time.Time, cfg ClassifierConfig) []models.Round {
	result := make([]models.Round, len(rounds))
	copy(result, rounds)

	sort.Slice(result, func(i, j int) bool {
		return result[i].RoundNumber < result[j].RoundNumber
	})

	// Индекс первого тура с будущим дедлайном; -1, если все прошли.
	anchor := -1
	for i := range result {
		if !result[i].DeadlinePassed(now) {
			anchor = i
			break
		}
	}

	for i := range result {
		round := &result[i]
		switch {
		case round.DeadlinePassed(now):
			// Дедлайны предполагаются монотонными по номеру тура, но это
			// не контролируется БД, поэтому проверяем каждый тур отдельно.
			round.Status = models.RoundPast
		case i == anchor:
			round.Status = models.RoundCurrent
		case anchor >= 0 && i > anchor && i <= anchor+cfg.Window:
			round.Status = models.RoundUpcoming
		default:
			round.Status = models.RoundFuture
		}

		selectable := round.Status == models.RoundCurrent || round.Status == models.RoundUpcoming
		if selectable && cfg.Horizon > 0 && round.DeadlineDate.Sub(now) > cfg.Horizon {
			selectable = false
		}
		round.IsSelectable = selectable
	}

	return result
}

type RoundService interface {
	// GetCompetitionRounds возвращает классифицированные туры соревнования.
	// forceRefresh сбрасывает кэш перед чтением.
	GetCompetitionRounds(ctx context.Context, competitionID int, forceRefresh bool) ([]models.Round, error)
	GetRoundWithFixtures(ctx context.Context, roundID int) (*models.Round, error)
}

type roundService struct {
	roundRepo       repositories.RoundRepository
	competitionRepo repositories.CompetitionRepository
	gameweekRepo    repositories.GameweekRepository
	fixtureRepo     repositories.FixtureRepository
	teamRepo        repositories.TeamRepository
	roundCache      cache.RoundCache
	classifierCfg   ClassifierConfig
}

func NewRoundService(
	roundRepo repositories.RoundRepository,
	competitionRepo repositories.CompetitionRepository,
	gameweekRepo repositories.GameweekRepository,
	fixtureRepo repositories.FixtureRepository,
	teamRepo repositories.TeamRepository,
	roundCache cache.RoundCache,
	classifierCfg ClassifierConfig,
) RoundService {
	return &roundService{
		roundRepo:       roundRepo,
		competitionRepo: competitionRepo,
		gameweekRepo:    gameweekRepo,
		fixtureRepo:     fixtureRepo,
		teamRepo:        teamRepo,
		roundCache:      roundCache,
		classifierCfg:   classifierCfg,
	}
}

func (s *roundService) GetCompetitionRounds(ctx context.Context, competitionID int, forceRefresh bool) ([]models.Round, error) {
	if forceRefresh {
		s.roundCache.Invalidate(competitionID)
	}

	rounds, ok := s.roundCache.Get(competitionID)
	if !ok {
		var err error
		rounds, err = s.roundRepo.ListByCompetition(ctx, competitionID)
		if err != nil {
			return nil, fmt.Errorf("failed to list rounds for competition %d: %w", competitionID, err)
		}
		s.roundCache.Set(competitionID, rounds)
	}

	// Статусы всегда пересчитываются от текущего момента, даже на
	// кэшированных данных: кэш хранит только строки туров.
	return ClassifyRounds(rounds, time.Now(), s.classifierCfg), nil
}

func findRoundByID(rounds []models.Round, id int) *models.Round {
	for i := range rounds {
		if rounds[i].ID == id {
			return &rounds[i]
		}
	}
	return nil
}

func (s *roundService) GetRoundWithFixtures(ctx context.Context, roundID int) (*models.Round, error) {
	round, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to get round %d: %w", roundID, err)
	}

	competition, err := s.competitionRepo.GetByID(ctx, round.CompetitionID)
	if err != nil {
		if errors.Is(err, repositories.ErrCompetitionNotFound) {
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to get competition %d: %w", round.CompetitionID, err)
	}

	// Статус тура зависит от остальных туров соревнования, поэтому
	// классифицируем весь список и берём нужный.
	allRounds, err := s.GetCompetitionRounds(ctx, round.CompetitionID, false)
	if err != nil {
		return nil, err
	}
	classifiedRound := findRoundByID(allRounds, round.ID)
	if classifiedRound == nil {
		// Кэшированный список устарел и не содержит этот тур — перечитываем
		// из базы, чтобы не вернуть тур с пустым статусом.
		allRounds, err = s.GetCompetitionRounds(ctx, round.CompetitionID, true)
		if err != nil {
			return nil, err
		}
		classifiedRound = findRoundByID(allRounds, round.ID)
	}
	if classifiedRound == nil {
		classified := ClassifyRounds([]models.Round{*round}, time.Now(), s.classifierCfg)
		classifiedRound = &classified[0]
	}
	round = classifiedRound

	gameweek, err := s.gameweekRepo.GetByNumber(ctx, competition.LeagueID, competition.Season, round.RoundNumber)
	if err != nil {
		if errors.Is(err, repositories.ErrGameweekNotFound) {
			// Игровая неделя ещё не загружена из внешнего API — тур без матчей.
			return round, nil
		}
		return nil, fmt.Errorf("failed to get gameweek for round %d: %w", roundID, err)
	}

	fixtures, err := s.fixtureRepo.ListByGameweek(ctx, gameweek.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fixtures for gameweek %d: %w", gameweek.ID, err)
	}

	externalIDs := make([]int, 0, len(fixtures)*2)
	for _, f := range fixtures {
		externalIDs = append(externalIDs, f.HomeTeamID, f.AwayTeamID)
	}
	teams, err := s.teamRepo.GetByExternalIDs(ctx, externalIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve teams for gameweek %d: %w", gameweek.ID, err)
	}

	for i := range fixtures {
		if team, ok := teams[fixtures[i].HomeTeamID]; ok {
			home := team
			fixtures[i].HomeTeam = &home
		}
		if team, ok := teams[fixtures[i].AwayTeamID]; ok {
			away := team
			fixtures[i].AwayTeam = &away
		}
	}
	round.Fixtures = fixtures

	return round, nil
}
