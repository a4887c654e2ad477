package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuanyshev/lastman-system/cache"
	"github.com/kuanyshev/lastman-system/models"
)

func weeklyRounds(competitionID, count int, firstDeadline time.Time) []models.Round {
	rounds := make([]models.Round, 0, count)
	for i := 0; i < count; i++ {
		rounds = append(rounds, models.Round{
			ID:            i + 1,
			CompetitionID: competitionID,
			RoundNumber:   i + 1,
			DeadlineDate:  firstDeadline.Add(time.Duration(i) * 7 * 24 * time.Hour),
		})
	}
	return rounds
}

func TestClassifyRoundsStatusPartition(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := ClassifierConfig{Window: 4, Horizon: 5 * 7 * 24 * time.Hour}

	// Туры 1-3 прошли, тур 4 ближайший, дальше 10 будущих.
	rounds := weeklyRounds(1, 10, now.Add(-3*7*24*time.Hour).Add(time.Hour))

	result := ClassifyRounds(rounds, now, cfg)
	require.Len(t, result, 10)

	wantStatuses := []models.RoundStatus{
		models.RoundPast, models.RoundPast, models.RoundPast,
		models.RoundCurrent,
		models.RoundUpcoming, models.RoundUpcoming, models.RoundUpcoming, models.RoundUpcoming,
		models.RoundFuture, models.RoundFuture,
	}
	for i, want := range wantStatuses {
		assert.Equal(t, want, result[i].Status, "round %d", result[i].RoundNumber)
	}
}

func TestClassifyRoundsSelectability(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := ClassifierConfig{Window: 4, Horizon: 5 * 7 * 24 * time.Hour}

	rounds := weeklyRounds(1, 10, now.Add(time.Hour))
	result := ClassifyRounds(rounds, now, cfg)

	// Окно в 4 тура после текущего: туры 1-5 в статусах CURRENT/UPCOMING,
	// но тур 5 с дедлайном через 4 недели и час уже попадает в горизонт,
	// а шестой и дальше — FUTURE и недоступны.
	for i, round := range result {
		wantSelectable := i < 5
		assert.Equal(t, wantSelectable, round.IsSelectable, "round %d", round.RoundNumber)
	}
}

func TestClassifyRoundsHorizonCutsWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Горизонт в две недели короче окна в 4 тура.
	cfg := ClassifierConfig{Window: 4, Horizon: 2 * 7 * 24 * time.Hour}

	rounds := weeklyRounds(1, 6, now.Add(time.Hour))
	result := ClassifyRounds(rounds, now, cfg)

	assert.True(t, result[0].IsSelectable)
	assert.True(t, result[1].IsSelectable)
	// Тур 3: UPCOMING, но дедлайн за горизонтом.
	assert.Equal(t, models.RoundUpcoming, result[2].Status)
	assert.False(t, result[2].IsSelectable)
}

func TestClassifyRoundsDeadlineEqualsNow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := ClassifierConfig{Window: 4}

	rounds := []models.Round{
		{ID: 1, RoundNumber: 1, DeadlineDate: now},
		{ID: 2, RoundNumber: 2, DeadlineDate: now.Add(7 * 24 * time.Hour)},
	}
	result := ClassifyRounds(rounds, now, cfg)

	// Дедлайн, равный "сейчас", считается прошедшим.
	assert.Equal(t, models.RoundPast, result[0].Status)
	assert.False(t, result[0].IsSelectable)
	assert.Equal(t, models.RoundCurrent, result[1].Status)
	assert.True(t, result[1].IsSelectable)
}

func TestClassifyRoundsAllPast(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	rounds := weeklyRounds(1, 4, now.Add(-10*7*24*time.Hour))

	result := ClassifyRounds(rounds, now, ClassifierConfig{Window: 4})
	for _, round := range result {
		assert.Equal(t, models.RoundPast, round.Status)
		assert.False(t, round.IsSelectable)
	}
}

func TestClassifyRoundsSingleFutureRound(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rounds := []models.Round{{ID: 7, RoundNumber: 7, DeadlineDate: now.Add(48 * time.Hour)}}

	result := ClassifyRounds(rounds, now, ClassifierConfig{Window: 4, Horizon: 5 * 7 * 24 * time.Hour})
	require.Len(t, result, 1)
	assert.Equal(t, models.RoundCurrent, result[0].Status)
	assert.True(t, result[0].IsSelectable)
}

func TestClassifyRoundsEmpty(t *testing.T) {
	result := ClassifyRounds(nil, time.Now(), ClassifierConfig{Window: 4})
	assert.Empty(t, result)
}

func TestClassifyRoundsZeroHorizonDisablesLimit(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rounds := weeklyRounds(1, 5, now.Add(time.Hour))

	result := ClassifyRounds(rounds, now, ClassifierConfig{Window: 4, Horizon: 0})
	for _, round := range result {
		assert.True(t, round.IsSelectable, "round %d", round.RoundNumber)
	}
}

func TestClassifyRoundsDoesNotMutateInput(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rounds := weeklyRounds(1, 3, now.Add(time.Hour))

	_ = ClassifyRounds(rounds, now, ClassifierConfig{Window: 4})
	for _, round := range rounds {
		assert.Empty(t, round.Status)
		assert.False(t, round.IsSelectable)
	}
}

func TestGetCompetitionRoundsUsesCache(t *testing.T) {
	now := time.Now()
	roundRepo := newFakeRoundRepo(weeklyRounds(1, 3, now.Add(time.Hour))...)
	roundCache := cache.NewTTLRoundCache(time.Minute)

	svc := NewRoundService(roundRepo, newFakeCompetitionRepo(), newFakeGameweekRepo(), newFakeFixtureRepo(), &fakeTeamRepo{}, roundCache, ClassifierConfig{Window: 4})

	first, err := svc.GetCompetitionRounds(context.Background(), 1, false)
	require.NoError(t, err)
	require.Len(t, first, 3)

	// Новый тур появляется в репозитории, но кэш ещё живой.
	roundRepo.rounds[4] = models.Round{ID: 4, CompetitionID: 1, RoundNumber: 4, DeadlineDate: now.Add(4 * 7 * 24 * time.Hour)}

	cached, err := svc.GetCompetitionRounds(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Len(t, cached, 3)

	refreshed, err := svc.GetCompetitionRounds(context.Background(), 1, true)
	require.NoError(t, err)
	assert.Len(t, refreshed, 4)
}

func TestGetCompetitionRoundsRecomputesStatusOnCachedRows(t *testing.T) {
	roundRepo := newFakeRoundRepo(weeklyRounds(1, 2, time.Now().Add(-time.Hour))...)
	roundCache := cache.NewTTLRoundCache(time.Minute)

	svc := NewRoundService(roundRepo, newFakeCompetitionRepo(), newFakeGameweekRepo(), newFakeFixtureRepo(), &fakeTeamRepo{}, roundCache, ClassifierConfig{Window: 4})

	rounds, err := svc.GetCompetitionRounds(context.Background(), 1, false)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.Equal(t, models.RoundPast, rounds[0].Status)
	assert.Equal(t, models.RoundCurrent, rounds[1].Status)

	// Кэш хранит сырые строки: статусы пересчитаны и во втором чтении.
	again, err := svc.GetCompetitionRounds(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Equal(t, models.RoundPast, again[0].Status)
	assert.Equal(t, models.RoundCurrent, again[1].Status)
}

func TestGetRoundWithFixturesClassifiesRoundMissingFromCache(t *testing.T) {
	now := time.Now()
	roundRepo := newFakeRoundRepo(weeklyRounds(1, 2, now.Add(time.Hour))...)
	competitionRepo := newFakeCompetitionRepo(models.Competition{ID: 1, LeagueID: 39, Season: 2025})
	roundCache := cache.NewTTLRoundCache(time.Minute)

	svc := NewRoundService(roundRepo, competitionRepo, newFakeGameweekRepo(), newFakeFixtureRepo(), &fakeTeamRepo{}, roundCache, ClassifierConfig{Window: 4, Horizon: 5 * 7 * 24 * time.Hour})

	// Прогреваем кэш до появления третьего тура.
	warm, err := svc.GetCompetitionRounds(context.Background(), 1, false)
	require.NoError(t, err)
	require.Len(t, warm, 2)

	roundRepo.rounds[3] = models.Round{ID: 3, CompetitionID: 1, RoundNumber: 3, DeadlineDate: now.Add(2*7*24*time.Hour + time.Hour)}

	// Тур отсутствует в закэшированном списке, но статус всё равно
	// должен быть рассчитан, а не остаться пустым.
	round, err := svc.GetRoundWithFixtures(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, models.RoundUpcoming, round.Status)
	assert.True(t, round.IsSelectable)
}
