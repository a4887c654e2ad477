package models

import "time"

// Gameweek представляет группировку матчей провайдера. Маппится на тур
// соревнования по (league_id, season, gameweek_number == round_number).
type Gameweek struct {
	ID             int       `json:"id" db:"id"`
	LeagueID       int       `json:"league_id" db:"league_id"`
	Season         int       `json:"season" db:"season"`
	GameweekNumber int       `json:"gameweek_number" db:"gameweek_number"`
	DeadlineTime   time.Time `json:"deadline_time" db:"deadline_time"`
	IsCurrent      bool      `json:"is_current" db:"is_current"`
	IsNext         bool      `json:"is_next" db:"is_next"`
	IsPrevious     bool      `json:"is_previous" db:"is_previous"`
	Finished       bool      `json:"finished" db:"finished"`
}
