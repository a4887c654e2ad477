package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed   = errors.New("validation failed")
	ErrRoundIDRequired    = errors.New("round id is required")
	ErrTeamIDRequired     = errors.New("team id is required")
	ErrDeadlinePassed     = errors.New("round deadline has passed")
	ErrGameweekFinished   = errors.New("gameweek has already finished")
	ErrCompetitionNotOpen = errors.New("competition is not open for entries")

	// Ошибки конфликтов
	ErrAlreadyEntered = errors.New("user has already paid or entered this competition")

	// Ошибки, специфичные для сущностей (могут дублировать ErrNotFound, но дают больше контекста)
	ErrCompetitionNotFound = errors.New("competition not found")
	ErrRoundNotFound       = errors.New("round not found")
	ErrPickNotFound        = errors.New("pick not found")
	ErrTeamNotFound        = errors.New("team not found")
	ErrGameweekNotFound    = errors.New("gameweek not found")

	// Фоновые задания
	ErrJobAlreadyRunning = errors.New("job is already running")
)
