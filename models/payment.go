package models

import "time"

// PaymentStatus представляет статусы записи об участии, соответствующие ENUM в БД.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Payment is a user's entry record for a competition, unique on
// (user_id, competition_id). Charging the card happens outside this
// service; the record is created here and confirmed by the payment
// provider's webhook.
type Payment struct {
	ID            int           `json:"id" db:"id"`
	UserID        int           `json:"user_id" db:"user_id"`
	CompetitionID int           `json:"competition_id" db:"competition_id"`
	Amount        int           `json:"amount" db:"amount"` // in minor units (pence)
	Status        PaymentStatus `json:"status" db:"status"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}
