package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kuanyshev/lastman-system/models"
	"github.com/lib/pq"
)

var (
	ErrPaymentNotFound           = errors.New("payment not found")
	ErrPaymentConflict           = errors.New("user already has an entry for this competition")
	ErrPaymentCompetitionInvalid = errors.New("invalid competition reference")
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByUserAndCompetition(ctx context.Context, userID, competitionID int) (*models.Payment, error)
}

type postgresPaymentRepository struct {
	db *sql.DB
}

func NewPostgresPaymentRepository(db *sql.DB) PaymentRepository {
	return &postgresPaymentRepository{db: db}
}

func (r *postgresPaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	query := `
		INSERT INTO payments (user_id, competition_id, amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		p.UserID, p.CompetitionID, p.Amount, p.Status,
	).Scan(&p.ID, &p.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "payments_user_id_competition_id_key" {
					return ErrPaymentConflict
				}
			case "23503":
				if pqErr.Constraint == "payments_competition_id_fkey" {
					return ErrPaymentCompetitionInvalid
				}
			}
		}
		return err
	}
	return nil
}

func (r *postgresPaymentRepository) GetByUserAndCompetition(ctx context.Context, userID, competitionID int) (*models.Payment, error) {
	query := `
		SELECT id, user_id, competition_id, amount, status, created_at
		FROM payments
		WHERE user_id = $1 AND competition_id = $2`

	p := &models.Payment{}
	err := r.db.QueryRowContext(ctx, query, userID, competitionID).Scan(
		&p.ID, &p.UserID, &p.CompetitionID, &p.Amount, &p.Status, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}
