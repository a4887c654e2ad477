package models

import "time"

// Team маппит внешний ID провайдера на внутренний ID команды.
// Пики всегда хранят внутренний ID.
type Team struct {
	ID            int       `json:"id" db:"id"`
	ExternalAPIID int       `json:"external_api_id" db:"external_api_id"`
	Name          string    `json:"name" db:"name"`
	League        string    `json:"league" db:"league"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`

	CrestKey *string `json:"-" db:"crest_key"`
	CrestURL *string `json:"crest_url,omitempty" db:"-"`
}
