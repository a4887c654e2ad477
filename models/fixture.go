package models

import "time"

// FixtureStatus is the provider's short status code for a match.
type FixtureStatus string

const (
	FixtureNotStarted FixtureStatus = "NS"
	FixtureFullTime   FixtureStatus = "FT"
	FixturePostponed  FixtureStatus = "PST"
	FixtureCanceled   FixtureStatus = "CANC"
)

// Fixture представляет один матч, полученный от внешнего провайдера.
// HomeTeamID/AwayTeamID хранят внешние ID провайдера; во внутренние ID
// команд они разрешаются через таблицу teams.
type Fixture struct {
	ID               int           `json:"id" db:"id"`
	ExternalID       int           `json:"external_id" db:"external_id"`
	GameweekID       int           `json:"gameweek_id" db:"gameweek_id"`
	HomeTeamID       int           `json:"home_team_id" db:"home_team_id"`
	AwayTeamID       int           `json:"away_team_id" db:"away_team_id"`
	HomeScore        *int          `json:"home_score,omitempty" db:"home_score"`
	AwayScore        *int          `json:"away_score,omitempty" db:"away_score"`
	Status           FixtureStatus `json:"status" db:"status"`
	KickoffTime      time.Time     `json:"kickoff_time" db:"kickoff_time"`
	ResultsProcessed bool          `json:"results_processed" db:"results_processed"`

	HomeTeam *Team `json:"home_team,omitempty" db:"-"`
	AwayTeam *Team `json:"away_team,omitempty" db:"-"`
}

// Finished reports whether the fixture has a final result that can be
// settled: full time with both scores present.
func (f *Fixture) Finished() bool {
	return f.Status == FixtureFullTime && f.HomeScore != nil && f.AwayScore != nil
}
