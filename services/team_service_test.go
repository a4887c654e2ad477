package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuanyshev/lastman-system/models"
)

func TestLookupTeamPrefersInternalID(t *testing.T) {
	// ID 5 существует и как внутренний (Arsenal), и как внешний (Chelsea).
	teamRepo := &fakeTeamRepo{teams: []models.Team{
		{ID: 5, ExternalAPIID: 500, Name: "Arsenal"},
		{ID: 6, ExternalAPIID: 5, Name: "Chelsea"},
	}}
	svc := NewTeamService(teamRepo, &fakeUploader{}, slog.Default())

	team, err := svc.LookupTeam(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Arsenal", team.Name)
}

func TestLookupTeamFallsBackToExternalID(t *testing.T) {
	teamRepo := &fakeTeamRepo{teams: []models.Team{{ID: 5, ExternalAPIID: 500, Name: "Arsenal"}}}
	svc := NewTeamService(teamRepo, &fakeUploader{}, slog.Default())

	team, err := svc.LookupTeam(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, 5, team.ID)

	_, err = svc.LookupTeam(context.Background(), 999)
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestLookupTeamPopulatesCrestURL(t *testing.T) {
	key := "crests/teams/5.png"
	teamRepo := &fakeTeamRepo{teams: []models.Team{{ID: 5, Name: "Arsenal", CrestKey: &key}}}
	svc := NewTeamService(teamRepo, &fakeUploader{baseURL: "https://cdn.example.com"}, slog.Default())

	team, err := svc.LookupTeam(context.Background(), 5)
	require.NoError(t, err)
	require.NotNil(t, team.CrestURL)
	assert.Equal(t, "https://cdn.example.com/crests/teams/5.png", *team.CrestURL)
}
