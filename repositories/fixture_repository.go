package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kuanyshev/lastman-system/models"
)

var (
	ErrFixtureNotFound = errors.New("fixture not found")
)

type FixtureRepository interface {
	ListByGameweek(ctx context.Context, gameweekID int) ([]models.Fixture, error)
	// ListUnprocessedFullTime возвращает завершённые матчи, результаты
	// которых ещё не обработаны резолвером.
	ListUnprocessedFullTime(ctx context.Context) ([]models.Fixture, error)
	MarkResultsProcessed(ctx context.Context, exec SQLExecutor, fixtureID int) error
}

type postgresFixtureRepository struct {
	db *sql.DB
}

func NewPostgresFixtureRepository(db *sql.DB) FixtureRepository {
	return &postgresFixtureRepository{db: db}
}

func (r *postgresFixtureRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresFixtureRepository) ListByGameweek(ctx context.Context, gameweekID int) ([]models.Fixture, error) {
	query := `
		SELECT id, external_id, gameweek_id, home_team_id, away_team_id,
		       home_score, away_score, status, kickoff_time, results_processed
		FROM fixtures
		WHERE gameweek_id = $1
		ORDER BY kickoff_time ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, gameweekID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFixtures(rows)
}

func (r *postgresFixtureRepository) ListUnprocessedFullTime(ctx context.Context) ([]models.Fixture, error) {
	query := `
		SELECT id, external_id, gameweek_id, home_team_id, away_team_id,
		       home_score, away_score, status, kickoff_time, results_processed
		FROM fixtures
		WHERE status = $1 AND results_processed = FALSE
		ORDER BY kickoff_time ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, models.FixtureFullTime)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFixtures(rows)
}

func (r *postgresFixtureRepository) MarkResultsProcessed(ctx context.Context, exec SQLExecutor, fixtureID int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE fixtures SET results_processed = TRUE WHERE id = $1`
	result, err := executor.ExecContext(ctx, query, fixtureID)
	if err != nil {
		return fmt.Errorf("failed to mark fixture %d processed: %w", fixtureID, err)
	}
	return checkAffectedRows(result, ErrFixtureNotFound)
}

func scanFixtures(rows *sql.Rows) ([]models.Fixture, error) {
	fixtures := make([]models.Fixture, 0)
	for rows.Next() {
		var f models.Fixture
		if scanErr := rows.Scan(
			&f.ID, &f.ExternalID, &f.GameweekID, &f.HomeTeamID, &f.AwayTeamID,
			&f.HomeScore, &f.AwayScore, &f.Status, &f.KickoffTime, &f.ResultsProcessed,
		); scanErr != nil {
			return nil, scanErr
		}
		fixtures = append(fixtures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return fixtures, nil
}
