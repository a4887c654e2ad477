package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kuanyshev/lastman-system/models"
)

var (
	ErrCompetitionNotFound = errors.New("competition not found")
)

type ListCompetitionsFilter struct {
	Status   *models.CompetitionStatus
	Sport    *string
	LeagueID *int
	Season   *int
	Limit    int
	Offset   int
}

type CompetitionRepository interface {
	GetByID(ctx context.Context, id int) (*models.Competition, error)
	List(ctx context.Context, filter ListCompetitionsFilter) ([]models.Competition, error)
	UpdateCrestKey(ctx context.Context, competitionID int, crestKey *string) error
}

type postgresCompetitionRepository struct {
	db *sql.DB
}

func NewPostgresCompetitionRepository(db *sql.DB) CompetitionRepository {
	return &postgresCompetitionRepository{db: db}
}

func (r *postgresCompetitionRepository) GetByID(ctx context.Context, id int) (*models.Competition, error) {
	query := `
		SELECT
			id, title, sport, league_id, season, entry_fee, prize_pot,
			status, start_date, rolled_over, created_at, crest_key
		FROM competitions
		WHERE id = $1`

	c := &models.Competition{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Title, &c.Sport, &c.LeagueID, &c.Season, &c.EntryFee, &c.PrizePot,
		&c.Status, &c.StartDate, &c.RolledOver, &c.CreatedAt, &c.CrestKey,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCompetitionNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *postgresCompetitionRepository) List(ctx context.Context, filter ListCompetitionsFilter) ([]models.Competition, error) {
	query := `
		SELECT
			id, title, sport, league_id, season, entry_fee, prize_pot,
			status, start_date, rolled_over, created_at, crest_key
		FROM competitions
		WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if filter.Sport != nil {
		query += fmt.Sprintf(" AND sport = $%d", argID)
		args = append(args, *filter.Sport)
		argID++
	}
	if filter.LeagueID != nil {
		query += fmt.Sprintf(" AND league_id = $%d", argID)
		args = append(args, *filter.LeagueID)
		argID++
	}
	if filter.Season != nil {
		query += fmt.Sprintf(" AND season = $%d", argID)
		args = append(args, *filter.Season)
		argID++
	}

	query += " ORDER BY start_date DESC, created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	competitions := make([]models.Competition, 0)
	for rows.Next() {
		var c models.Competition
		if scanErr := rows.Scan(
			&c.ID, &c.Title, &c.Sport, &c.LeagueID, &c.Season, &c.EntryFee, &c.PrizePot,
			&c.Status, &c.StartDate, &c.RolledOver, &c.CreatedAt, &c.CrestKey,
		); scanErr != nil {
			return nil, scanErr
		}
		competitions = append(competitions, c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return competitions, nil
}

func (r *postgresCompetitionRepository) UpdateCrestKey(ctx context.Context, competitionID int, crestKey *string) error {
	query := `UPDATE competitions SET crest_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, crestKey, competitionID)
	if err != nil {
		return fmt.Errorf("failed to update competition crest key: %w", err)
	}
	return checkAffectedRows(result, ErrCompetitionNotFound)
}
