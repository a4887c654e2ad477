package models

import "time"

// CompetitionStatus представляет статусы соревнования, соответствующие ENUM в БД.
type CompetitionStatus string

const (
	CompetitionUpcoming  CompetitionStatus = "upcoming"
	CompetitionActive    CompetitionStatus = "active"
	CompetitionCompleted CompetitionStatus = "completed"
	CompetitionCanceled  CompetitionStatus = "canceled"
)

// Competition представляет одно соревнование "Last Man Standing".
type Competition struct {
	ID         int               `json:"id" db:"id"`
	Title      string            `json:"title" db:"title"`
	Sport      string            `json:"sport" db:"sport"`
	LeagueID   int               `json:"league_id" db:"league_id"`
	Season     int               `json:"season" db:"season"`
	EntryFee   int               `json:"entry_fee" db:"entry_fee"` // in minor units (pence)
	PrizePot   int               `json:"prize_pot" db:"prize_pot"`
	Status     CompetitionStatus `json:"status" db:"status"`
	StartDate  time.Time         `json:"start_date" db:"start_date"`
	RolledOver bool              `json:"rolled_over" db:"rolled_over"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`

	CrestKey *string `json:"-" db:"crest_key"`
	CrestURL *string `json:"crest_url,omitempty" db:"-"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Rounds []Round `json:"rounds,omitempty" db:"-"`
}
