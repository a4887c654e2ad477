package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kuanyshev/lastman-system/db"
	"github.com/kuanyshev/lastman-system/live"
	"github.com/kuanyshev/lastman-system/models"
	"github.com/kuanyshev/lastman-system/repositories"
)

const (
	resultJobName     = "process_results"
	resultWorkerLimit = 4
)

// errNoRoundForFixture: матч пока не маппится ни на один тур — данные
// неполные, матч остаётся необработанным до следующего запуска.
var errNoRoundForFixture = errors.New("no round found for fixture")

// ResultRunSummary — итог одного прогона резолвера результатов.
type ResultRunSummary struct {
	Processed  int `json:"processed"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	Eliminated int `json:"eliminated"`
}

type ResultService interface {
	// ProcessResults обрабатывает все завершённые матчи с
	// results_processed = false: выбивает пики проигравших (и сыгравших
	// вничью) команд и помечает матч обработанным. Ошибка одного матча не
	// прерывает обработку остальных.
	ProcessResults(ctx context.Context) (*ResultRunSummary, error)
}

type resultService struct {
	dbConn          *sql.DB
	fixtureRepo     repositories.FixtureRepository
	gameweekRepo    repositories.GameweekRepository
	competitionRepo repositories.CompetitionRepository
	roundRepo       repositories.RoundRepository
	teamRepo        repositories.TeamRepository
	pickRepo        repositories.PickRepository
	hub             LiveBroadcaster
	logger          *slog.Logger
}

func NewResultService(
	dbConn *sql.DB,
	fixtureRepo repositories.FixtureRepository,
	gameweekRepo repositories.GameweekRepository,
	competitionRepo repositories.CompetitionRepository,
	roundRepo repositories.RoundRepository,
	teamRepo repositories.TeamRepository,
	pickRepo repositories.PickRepository,
	hub LiveBroadcaster,
	logger *slog.Logger,
) ResultService {
	return &resultService{
		dbConn:          dbConn,
		fixtureRepo:     fixtureRepo,
		gameweekRepo:    gameweekRepo,
		competitionRepo: competitionRepo,
		roundRepo:       roundRepo,
		teamRepo:        teamRepo,
		pickRepo:        pickRepo,
		hub:             hub,
		logger:          logger,
	}
}

func (s *resultService) ProcessResults(ctx context.Context) (*ResultRunSummary, error) {
	// Advisory lock защищает от перекрывающихся запусков планировщика и
	// ручного cron-триггера.
	if s.dbConn != nil {
		lock, err := db.TryJobLock(ctx, s.dbConn, resultJobName)
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

	fixtures, err := s.fixtureRepo.ListUnprocessedFullTime(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed fixtures: %w", err)
	}

	summary := &ResultRunSummary{}
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(resultWorkerLimit)

	for _, fixture := range fixtures {
		fixture := fixture
		g.Go(func() error {
			eliminated, err := s.processFixture(gCtx, fixture)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, errNoRoundForFixture):
				summary.Skipped++
			case err != nil:
				summary.Failed++
				s.logger.ErrorContext(gCtx, "failed to process fixture",
					slog.Int("fixture_id", fixture.ID), slog.Any("error", err))
			default:
				summary.Processed++
				summary.Eliminated += eliminated
			}
			// Ошибки матчей изолированы, группа не прерывается.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	s.logger.InfoContext(ctx, "results run finished",
		slog.Int("processed", summary.Processed),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
		slog.Int("eliminated", summary.Eliminated),
	)
	return summary, nil
}

func (s *resultService) processFixture(ctx context.Context, fixture models.Fixture) (int, error) {
	if !fixture.Finished() {
		// FT без счёта — провайдер ещё не отдал результат, ждём.
		return 0, errNoRoundForFixture
	}

	gameweek, err := s.gameweekRepo.GetByID(ctx, fixture.GameweekID)
	if err != nil {
		return 0, fmt.Errorf("failed to get gameweek %d: %w", fixture.GameweekID, err)
	}

	rounds, err := s.roundsForGameweek(ctx, gameweek)
	if err != nil {
		return 0, err
	}
	if len(rounds) == 0 {
		s.logger.WarnContext(ctx, "no round maps to fixture, leaving unprocessed",
			slog.Int("fixture_id", fixture.ID),
			slog.Int("gameweek_number", gameweek.GameweekNumber))
		return 0, errNoRoundForFixture
	}

	losers, mappingOK := s.losingTeams(ctx, fixture)
	if !mappingOK {
		// Неразрешимый маппинг команд не чинится перезапуском: помечаем
		// матч обработанным, чтобы не зациклиться на нём.
		s.logger.WarnContext(ctx, "team mapping failed, marking fixture processed without pick updates",
			slog.Int("fixture_id", fixture.ID),
			slog.Int("home_team_id", fixture.HomeTeamID),
			slog.Int("away_team_id", fixture.AwayTeamID))
		if err := s.fixtureRepo.MarkResultsProcessed(ctx, nil, fixture.ID); err != nil {
			return 0, err
		}
		return 0, nil
	}

	// Исключение пиков и пометка матча идут в одной транзакции: матч не
	// должен остаться необработанным после частичного применения.
	var exec repositories.SQLExecutor
	var tx *sql.Tx
	if s.dbConn != nil {
		tx, err = s.dbConn.BeginTx(ctx, nil)
		if err != nil {
			return 0, fmt.Errorf("failed to begin transaction for fixture %d: %w", fixture.ID, err)
		}
		defer tx.Rollback()
		exec = tx
	}

	eliminated := 0
	eliminatedByRound := make(map[int]int, len(rounds))
	for _, round := range rounds {
		count, err := s.pickRepo.EliminateByRoundAndTeams(ctx, exec, round.ID, losers)
		if err != nil {
			return 0, err
		}
		eliminated += count
		eliminatedByRound[round.ID] = count
	}

	if err := s.fixtureRepo.MarkResultsProcessed(ctx, exec, fixture.ID); err != nil {
		return 0, err
	}

	if tx != nil {
		if err := tx.Commit(); err != nil {
			return 0, fmt.Errorf("failed to commit fixture %d: %w", fixture.ID, err)
		}
	}

	if s.hub != nil {
		for _, round := range rounds {
			if eliminatedByRound[round.ID] == 0 {
				continue
			}
			s.hub.BroadcastToRoom(competitionRoom(round.CompetitionID), live.Message{
				Type:   live.EventPicksEliminated,
				RoomID: competitionRoom(round.CompetitionID),
				Payload: map[string]interface{}{
					"competition_id":   round.CompetitionID,
					"round_id":         round.ID,
					"fixture_id":       fixture.ID,
					"eliminated_count": eliminatedByRound[round.ID],
				},
			})
		}
	}

	return eliminated, nil
}

// roundsForGameweek возвращает туры всех соревнований лиги/сезона с номером
// тура, равным номеру игровой недели.
func (s *resultService) roundsForGameweek(ctx context.Context, gameweek *models.Gameweek) ([]models.Round, error) {
	competitions, err := s.competitionRepo.List(ctx, repositories.ListCompetitionsFilter{
		LeagueID: &gameweek.LeagueID,
		Season:   &gameweek.Season,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list competitions for league %d season %d: %w",
			gameweek.LeagueID, gameweek.Season, err)
	}

	rounds := make([]models.Round, 0, len(competitions))
	for _, competition := range competitions {
		round, err := s.roundRepo.GetByCompetitionAndNumber(ctx, competition.ID, gameweek.GameweekNumber)
		if err != nil {
			if errors.Is(err, repositories.ErrRoundNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to get round %d of competition %d: %w",
				gameweek.GameweekNumber, competition.ID, err)
		}
		rounds = append(rounds, *round)
	}
	return rounds, nil
}

// losingTeams возвращает внутренние ID команд, чьи пики выбывают:
// home_score <= away_score выбивает хозяев, home_score >= away_score —
// гостей. Ничья выбивает обе стороны: выживает только чистая победа.
func (s *resultService) losingTeams(ctx context.Context, fixture models.Fixture) ([]int, bool) {
	losers := make([]int, 0, 2)
	mappingOK := true

	resolve := func(externalID int) (int, bool) {
		team, err := s.teamRepo.GetByExternalID(ctx, externalID)
		if err != nil {
			return 0, false
		}
		return team.ID, true
	}

	if *fixture.HomeScore <= *fixture.AwayScore {
		if id, ok := resolve(fixture.HomeTeamID); ok {
			losers = append(losers, id)
		} else {
			mappingOK = false
		}
	}
	if *fixture.HomeScore >= *fixture.AwayScore {
		if id, ok := resolve(fixture.AwayTeamID); ok {
			losers = append(losers, id)
		} else {
			mappingOK = false
		}
	}

	return losers, mappingOK
}
