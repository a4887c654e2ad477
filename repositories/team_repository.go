package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kuanyshev/lastman-system/models"
	"github.com/lib/pq"
)

var (
	ErrTeamNotFound = errors.New("team not found")
)

type TeamRepository interface {
	GetByID(ctx context.Context, id int) (*models.Team, error)
	GetByExternalID(ctx context.Context, externalAPIID int) (*models.Team, error)
	// GetByIDs возвращает найденные команды, ключ — внутренний ID.
	// Отсутствующие ID молча опускаются.
	GetByIDs(ctx context.Context, ids []int) (map[int]models.Team, error)
	// GetByExternalIDs возвращает найденные команды, ключ — внешний ID
	// провайдера. Отсутствующие ID молча опускаются.
	GetByExternalIDs(ctx context.Context, externalAPIIDs []int) (map[int]models.Team, error)
	UpdateCrestKey(ctx context.Context, teamID int, crestKey *string) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `
		SELECT id, external_api_id, name, league, created_at, crest_key
		FROM teams
		WHERE id = $1`

	t := &models.Team{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.ExternalAPIID, &t.Name, &t.League, &t.CreatedAt, &t.CrestKey,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTeamRepository) GetByExternalID(ctx context.Context, externalAPIID int) (*models.Team, error) {
	query := `
		SELECT id, external_api_id, name, league, created_at, crest_key
		FROM teams
		WHERE external_api_id = $1`

	t := &models.Team{}
	err := r.db.QueryRowContext(ctx, query, externalAPIID).Scan(
		&t.ID, &t.ExternalAPIID, &t.Name, &t.League, &t.CreatedAt, &t.CrestKey,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTeamRepository) GetByIDs(ctx context.Context, ids []int) (map[int]models.Team, error) {
	teams := make(map[int]models.Team, len(ids))
	if len(ids) == 0 {
		return teams, nil
	}

	query := `
		SELECT id, external_api_id, name, league, created_at, crest_key
		FROM teams
		WHERE id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var t models.Team
		if scanErr := rows.Scan(
			&t.ID, &t.ExternalAPIID, &t.Name, &t.League, &t.CreatedAt, &t.CrestKey,
		); scanErr != nil {
			return nil, scanErr
		}
		teams[t.ID] = t
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *postgresTeamRepository) GetByExternalIDs(ctx context.Context, externalAPIIDs []int) (map[int]models.Team, error) {
	teams := make(map[int]models.Team, len(externalAPIIDs))
	if len(externalAPIIDs) == 0 {
		return teams, nil
	}

	query := `
		SELECT id, external_api_id, name, league, created_at, crest_key
		FROM teams
		WHERE external_api_id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(externalAPIIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var t models.Team
		if scanErr := rows.Scan(
			&t.ID, &t.ExternalAPIID, &t.Name, &t.League, &t.CreatedAt, &t.CrestKey,
		); scanErr != nil {
			return nil, scanErr
		}
		teams[t.ExternalAPIID] = t
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *postgresTeamRepository) UpdateCrestKey(ctx context.Context, teamID int, crestKey *string) error {
	query := `UPDATE teams SET crest_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, crestKey, teamID)
	if err != nil {
		return fmt.Errorf("failed to update team crest key: %w", err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}
