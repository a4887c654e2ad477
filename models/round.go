package models

import "time"

// RoundStatus is the derived position of a round relative to "now".
// It is never stored; the classifier recomputes it on every read.
type RoundStatus string

const (
	RoundPast     RoundStatus = "PAST"
	RoundCurrent  RoundStatus = "CURRENT"
	RoundUpcoming RoundStatus = "UPCOMING"
	RoundFuture   RoundStatus = "FUTURE"
)

// Round представляет один тур соревнования со своим дедлайном пиков.
type Round struct {
	ID            int       `json:"id" db:"id"`
	CompetitionID int       `json:"competition_id" db:"competition_id"`
	RoundNumber   int       `json:"round_number" db:"round_number"`
	DeadlineDate  time.Time `json:"deadline_date" db:"deadline_date"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`

	// Derived by the classifier, not stored.
	Status       RoundStatus `json:"status,omitempty" db:"-"`
	IsSelectable bool        `json:"is_selectable" db:"-"`

	Fixtures []Fixture `json:"fixtures,omitempty" db:"-"`
}

// DeadlinePassed reports whether the round's deadline has passed at instant
// now. A deadline exactly equal to now counts as passed; every consumer of
// the deadline must go through this method so the convention stays in one
// place.
func (r *Round) DeadlinePassed(now time.Time) bool {
	return !r.DeadlineDate.After(now)
}
