package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kuanyshev/lastman-system/models"
)

var (
	ErrRoundNotFound = errors.New("round not found")
)

type RoundRepository interface {
	GetByID(ctx context.Context, id int) (*models.Round, error)
	// ListByCompetition возвращает туры соревнования, отсортированные по
	// round_number по возрастанию — классификатор полагается на этот порядок.
	ListByCompetition(ctx context.Context, competitionID int) ([]models.Round, error)
	GetByCompetitionAndNumber(ctx context.Context, competitionID, roundNumber int) (*models.Round, error)
}

type postgresRoundRepository struct {
	db *sql.DB
}

func NewPostgresRoundRepository(db *sql.DB) RoundRepository {
	return &postgresRoundRepository{db: db}
}

func (r *postgresRoundRepository) GetByID(ctx context.Context, id int) (*models.Round, error) {
	query := `
		SELECT id, competition_id, round_number, deadline_date, created_at
		FROM rounds
		WHERE id = $1`

	round := &models.Round{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&round.ID, &round.CompetitionID, &round.RoundNumber, &round.DeadlineDate, &round.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}
	return round, nil
}

func (r *postgresRoundRepository) ListByCompetition(ctx context.Context, competitionID int) ([]models.Round, error) {
	query := `
		SELECT id, competition_id, round_number, deadline_date, created_at
		FROM rounds
		WHERE competition_id = $1
		ORDER BY round_number ASC`

	rows, err := r.db.QueryContext(ctx, query, competitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rounds := make([]models.Round, 0)
	for rows.Next() {
		var round models.Round
		if scanErr := rows.Scan(
			&round.ID, &round.CompetitionID, &round.RoundNumber, &round.DeadlineDate, &round.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		rounds = append(rounds, round)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return rounds, nil
}

func (r *postgresRoundRepository) GetByCompetitionAndNumber(ctx context.Context, competitionID, roundNumber int) (*models.Round, error) {
	query := `
		SELECT id, competition_id, round_number, deadline_date, created_at
		FROM rounds
		WHERE competition_id = $1 AND round_number = $2`

	round := &models.Round{}
	err := r.db.QueryRowContext(ctx, query, competitionID, roundNumber).Scan(
		&round.ID, &round.CompetitionID, &round.RoundNumber, &round.DeadlineDate, &round.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}
	return round, nil
}
