package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuanyshev/lastman-system/models"
	"github.com/kuanyshev/lastman-system/repositories"
	"github.com/kuanyshev/lastman-system/services"
)

type stubCompetitionRepo struct {
	competitions []models.Competition
	err          error
}

func (s *stubCompetitionRepo) GetByID(context.Context, int) (*models.Competition, error) {
	return nil, repositories.ErrCompetitionNotFound
}

func (s *stubCompetitionRepo) List(context.Context, repositories.ListCompetitionsFilter) ([]models.Competition, error) {
	return s.competitions, s.err
}

func (s *stubCompetitionRepo) UpdateCrestKey(context.Context, int, *string) error { return nil }

type stubGameweekService struct {
	errByLeague map[int]error
	calls       [][2]int
}

func (s *stubGameweekService) UpdateGameweekStatus(_ context.Context, leagueID, season int) (*services.GameweekRunSummary, error) {
	s.calls = append(s.calls, [2]int{leagueID, season})
	if err := s.errByLeague[leagueID]; err != nil {
		return nil, err
	}
	return &services.GameweekRunSummary{}, nil
}

func TestUpdateActiveGameweeksContinuesAfterPairFailure(t *testing.T) {
	repo := &stubCompetitionRepo{competitions: []models.Competition{
		{ID: 1, LeagueID: 39, Season: 2025},
		{ID: 2, LeagueID: 39, Season: 2025},
		{ID: 3, LeagueID: 140, Season: 2025},
		{ID: 4, LeagueID: 78, Season: 2025},
	}}
	svc := &stubGameweekService{errByLeague: map[int]error{
		39:  errors.New("boom"),
		140: services.ErrJobAlreadyRunning,
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	err := updateActiveGameweeks(context.Background(), logger, repo, svc)

	// Сбой одной пары лига/сезон не мешает обработке остальных.
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{39, 2025}, {140, 2025}, {78, 2025}}, svc.calls)
}

func TestUpdateActiveGameweeksPropagatesListError(t *testing.T) {
	repo := &stubCompetitionRepo{err: errors.New("db down")}
	svc := &stubGameweekService{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	err := updateActiveGameweeks(context.Background(), logger, repo, svc)

	assert.Error(t, err)
	assert.Empty(t, svc.calls)
}
