package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kuanyshev/lastman-system/models"
	"github.com/lib/pq"
)

var (
	ErrPickNotFound     = errors.New("pick not found")
	ErrPickRoundInvalid = errors.New("invalid round reference")
	ErrPickTeamInvalid  = errors.New("invalid team reference")
)

type PickRepository interface {
	GetByUserAndRound(ctx context.Context, userID, roundID int) (*models.Pick, error)
	ListByUserAndCompetition(ctx context.Context, userID, competitionID int) ([]models.Pick, error)
	// Upsert создаёт или перезаписывает пик по ключу (user_id, round_id).
	// Конфликт разрешается последней записью; версионирования нет.
	Upsert(ctx context.Context, pick *models.Pick) error
	// LockExpired переводит все pending-пики туров с прошедшим дедлайном в
	// locked и возвращает обновлённые записи. Повторный вызов без новых
	// истёкших дедлайнов возвращает пустой результат.
	LockExpired(ctx context.Context, exec SQLExecutor, now time.Time) ([]models.Pick, error)
	// EliminateByRoundAndTeams переводит живые пики тура на перечисленные
	// команды в eliminated. Возвращает количество затронутых пиков;
	// уже выбывшие пики под условие не попадают, поэтому повтор безопасен.
	EliminateByRoundAndTeams(ctx context.Context, exec SQLExecutor, roundID int, teamIDs []int) (int, error)
}

type postgresPickRepository struct {
	db *sql.DB
}

func NewPostgresPickRepository(db *sql.DB) PickRepository {
	return &postgresPickRepository{db: db}
}

func (r *postgresPickRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPickRepository) GetByUserAndRound(ctx context.Context, userID, roundID int) (*models.Pick, error) {
	query := `
		SELECT id, user_id, round_id, team_id, status, pick_timestamp
		FROM picks
		WHERE user_id = $1 AND round_id = $2`

	p := &models.Pick{}
	err := r.db.QueryRowContext(ctx, query, userID, roundID).Scan(
		&p.ID, &p.UserID, &p.RoundID, &p.TeamID, &p.Status, &p.PickTimestamp,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPickNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresPickRepository) ListByUserAndCompetition(ctx context.Context, userID, competitionID int) ([]models.Pick, error) {
	query := `
		SELECT p.id, p.user_id, p.round_id, p.team_id, p.status, p.pick_timestamp
		FROM picks p
		JOIN rounds r ON r.id = p.round_id
		WHERE p.user_id = $1 AND r.competition_id = $2
		ORDER BY r.round_number ASC`

	rows, err := r.db.QueryContext(ctx, query, userID, competitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	picks := make([]models.Pick, 0)
	for rows.Next() {
		var p models.Pick
		if scanErr := rows.Scan(
			&p.ID, &p.UserID, &p.RoundID, &p.TeamID, &p.Status, &p.PickTimestamp,
		); scanErr != nil {
			return nil, scanErr
		}
		picks = append(picks, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return picks, nil
}

func (r *postgresPickRepository) Upsert(ctx context.Context, pick *models.Pick) error {
	query := `
		INSERT INTO picks (user_id, round_id, team_id, status, pick_timestamp)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, round_id) DO UPDATE SET
			team_id = EXCLUDED.team_id,
			status = EXCLUDED.status,
			pick_timestamp = EXCLUDED.pick_timestamp
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		pick.UserID, pick.RoundID, pick.TeamID, pick.Status, pick.PickTimestamp,
	).Scan(&pick.ID)

	return handlePickError(err)
}

func (r *postgresPickRepository) LockExpired(ctx context.Context, exec SQLExecutor, now time.Time) ([]models.Pick, error) {
	executor := r.getExecutor(exec)
	query := `
		UPDATE picks p SET status = $1
		FROM rounds r
		WHERE r.id = p.round_id
		  AND p.status = $2
		  AND r.deadline_date <= $3
		RETURNING p.id, p.user_id, p.round_id, p.team_id, p.status, p.pick_timestamp`

	rows, err := executor.QueryContext(ctx, query, models.PickLocked, models.PickPending, now)
	if err != nil {
		return nil, fmt.Errorf("failed to lock expired picks: %w", err)
	}
	defer rows.Close()

	picks := make([]models.Pick, 0)
	for rows.Next() {
		var p models.Pick
		if scanErr := rows.Scan(
			&p.ID, &p.UserID, &p.RoundID, &p.TeamID, &p.Status, &p.PickTimestamp,
		); scanErr != nil {
			return nil, scanErr
		}
		picks = append(picks, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return picks, nil
}

func (r *postgresPickRepository) EliminateByRoundAndTeams(ctx context.Context, exec SQLExecutor, roundID int, teamIDs []int) (int, error) {
	if len(teamIDs) == 0 {
		return 0, nil
	}
	executor := r.getExecutor(exec)
	query := `
		UPDATE picks SET status = $1
		WHERE round_id = $2
		  AND team_id = ANY($3)
		  AND status = ANY($4)`

	inPlay := pq.Array([]string{
		string(models.PickPending),
		string(models.PickLocked),
		string(models.PickActive),
	})
	result, err := executor.ExecContext(ctx, query, models.PickEliminated, roundID, pq.Array(teamIDs), inPlay)
	if err != nil {
		return 0, fmt.Errorf("failed to eliminate picks for round %d: %w", roundID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return int(affected), nil
}

func handlePickError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23503" {
			switch pqErr.Constraint {
			case "picks_round_id_fkey":
				return ErrPickRoundInvalid
			case "picks_team_id_fkey":
				return ErrPickTeamInvalid
			}
		}
	}
	return err
}
