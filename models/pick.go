package models

import "time"

// PickStatus представляет статусы пика, соответствующие ENUM в БД.
type PickStatus string

const (
	PickPending    PickStatus = "pending"
	PickLocked     PickStatus = "locked"
	PickActive     PickStatus = "active"
	PickWin        PickStatus = "win"
	PickLoss       PickStatus = "loss"
	PickDraw       PickStatus = "draw"
	PickVoid       PickStatus = "void"
	PickEliminated PickStatus = "eliminated"
)

// InPlay reports whether the pick is still alive in the competition, i.e.
// eligible for elimination when its team loses or draws.
func (s PickStatus) InPlay() bool {
	switch s {
	case PickPending, PickLocked, PickActive:
		return true
	default:
		return false
	}
}

// Pick is one user's team selection for one round, unique on
// (user_id, round_id).
type Pick struct {
	ID            int        `json:"id" db:"id"`
	UserID        int        `json:"user_id" db:"user_id"`
	RoundID       int        `json:"round_id" db:"round_id"`
	TeamID        int        `json:"team_id" db:"team_id"`
	Status        PickStatus `json:"status" db:"status"`
	PickTimestamp time.Time  `json:"pick_timestamp" db:"pick_timestamp"`

	Team *Team `json:"team,omitempty" db:"-"`
}
