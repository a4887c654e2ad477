package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kuanyshev/lastman-system/models"
)

var (
	ErrGameweekNotFound = errors.New("gameweek not found")
)

type GameweekRepository interface {
	GetByID(ctx context.Context, id int) (*models.Gameweek, error)
	GetByNumber(ctx context.Context, leagueID, season, gameweekNumber int) (*models.Gameweek, error)
	// ListByLeagueSeason возвращает игровые недели сезона, отсортированные
	// по deadline_time по возрастанию — апдейтер полагается на этот порядок.
	ListByLeagueSeason(ctx context.Context, leagueID, season int) ([]models.Gameweek, error)
	UpdateFlags(ctx context.Context, exec SQLExecutor, gw *models.Gameweek) error
}

type postgresGameweekRepository struct {
	db *sql.DB
}

func NewPostgresGameweekRepository(db *sql.DB) GameweekRepository {
	return &postgresGameweekRepository{db: db}
}

func (r *postgresGameweekRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresGameweekRepository) GetByID(ctx context.Context, id int) (*models.Gameweek, error) {
	query := `
		SELECT id, league_id, season, gameweek_number, deadline_time,
		       is_current, is_next, is_previous, finished
		FROM gameweeks
		WHERE id = $1`

	gw := &models.Gameweek{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&gw.ID, &gw.LeagueID, &gw.Season, &gw.GameweekNumber, &gw.DeadlineTime,
		&gw.IsCurrent, &gw.IsNext, &gw.IsPrevious, &gw.Finished,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameweekNotFound
		}
		return nil, err
	}
	return gw, nil
}

func (r *postgresGameweekRepository) GetByNumber(ctx context.Context, leagueID, season, gameweekNumber int) (*models.Gameweek, error) {
	query := `
		SELECT id, league_id, season, gameweek_number, deadline_time,
		       is_current, is_next, is_previous, finished
		FROM gameweeks
		WHERE league_id = $1 AND season = $2 AND gameweek_number = $3`

	gw := &models.Gameweek{}
	err := r.db.QueryRowContext(ctx, query, leagueID, season, gameweekNumber).Scan(
		&gw.ID, &gw.LeagueID, &gw.Season, &gw.GameweekNumber, &gw.DeadlineTime,
		&gw.IsCurrent, &gw.IsNext, &gw.IsPrevious, &gw.Finished,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameweekNotFound
		}
		return nil, err
	}
	return gw, nil
}

func (r *postgresGameweekRepository) ListByLeagueSeason(ctx context.Context, leagueID, season int) ([]models.Gameweek, error) {
	query := `
		SELECT id, league_id, season, gameweek_number, deadline_time,
		       is_current, is_next, is_previous, finished
		FROM gameweeks
		WHERE league_id = $1 AND season = $2
		ORDER BY deadline_time ASC`

	rows, err := r.db.QueryContext(ctx, query, leagueID, season)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	gameweeks := make([]models.Gameweek, 0)
	for rows.Next() {
		var gw models.Gameweek
		if scanErr := rows.Scan(
			&gw.ID, &gw.LeagueID, &gw.Season, &gw.GameweekNumber, &gw.DeadlineTime,
			&gw.IsCurrent, &gw.IsNext, &gw.IsPrevious, &gw.Finished,
		); scanErr != nil {
			return nil, scanErr
		}
		gameweeks = append(gameweeks, gw)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return gameweeks, nil
}

func (r *postgresGameweekRepository) UpdateFlags(ctx context.Context, exec SQLExecutor, gw *models.Gameweek) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE gameweeks SET
			is_current = $1,
			is_next = $2,
			is_previous = $3,
			finished = $4
		WHERE id = $5`

	result, err := executor.ExecContext(ctx, query,
		gw.IsCurrent, gw.IsNext, gw.IsPrevious, gw.Finished, gw.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update gameweek %d flags: %w", gw.ID, err)
	}
	return checkAffectedRows(result, ErrGameweekNotFound)
}
