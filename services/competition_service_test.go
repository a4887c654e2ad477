package services

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuanyshev/lastman-system/cache"
	"github.com/kuanyshev/lastman-system/models"
)

func newCompetitionServiceForTest(competitionRepo *fakeCompetitionRepo, paymentRepo *fakePaymentRepo, roundRepo *fakeRoundRepo, uploader *fakeUploader) CompetitionService {
	roundService := NewRoundService(roundRepo, competitionRepo, newFakeGameweekRepo(), newFakeFixtureRepo(), &fakeTeamRepo{}, cache.NoopRoundCache{}, ClassifierConfig{Window: 4})
	return NewCompetitionService(competitionRepo, paymentRepo, roundService, uploader, slog.Default())
}

func TestEnterCompetition(t *testing.T) {
	competitionRepo := newFakeCompetitionRepo(models.Competition{
		ID: 1, Status: models.CompetitionActive, EntryFee: 1000,
	})
	paymentRepo := newFakePaymentRepo()
	svc := newCompetitionServiceForTest(competitionRepo, paymentRepo, newFakeRoundRepo(), &fakeUploader{})

	payment, err := svc.EnterCompetition(context.Background(), 10, 1)
	require.NoError(t, err)
	assert.Equal(t, 1000, payment.Amount)
	assert.Equal(t, models.PaymentPaid, payment.Status)

	// Повторный вход отклоняется.
	_, err = svc.EnterCompetition(context.Background(), 10, 1)
	assert.ErrorIs(t, err, ErrAlreadyEntered)
}

func TestEnterCompetitionClosedStatuses(t *testing.T) {
	competitionRepo := newFakeCompetitionRepo(
		models.Competition{ID: 1, Status: models.CompetitionCompleted},
		models.Competition{ID: 2, Status: models.CompetitionCanceled},
		models.Competition{ID: 3, Status: models.CompetitionUpcoming},
	)
	svc := newCompetitionServiceForTest(competitionRepo, newFakePaymentRepo(), newFakeRoundRepo(), &fakeUploader{})

	_, err := svc.EnterCompetition(context.Background(), 10, 1)
	assert.ErrorIs(t, err, ErrCompetitionNotOpen)
	_, err = svc.EnterCompetition(context.Background(), 10, 2)
	assert.ErrorIs(t, err, ErrCompetitionNotOpen)
	// Скорое соревнование принимает входы заранее.
	_, err = svc.EnterCompetition(context.Background(), 10, 3)
	assert.NoError(t, err)

	_, err = svc.EnterCompetition(context.Background(), 10, 99)
	assert.ErrorIs(t, err, ErrCompetitionNotFound)
}

func TestGetEntryStatus(t *testing.T) {
	competitionRepo := newFakeCompetitionRepo(models.Competition{ID: 1, Status: models.CompetitionActive})
	paymentRepo := newFakePaymentRepo()
	svc := newCompetitionServiceForTest(competitionRepo, paymentRepo, newFakeRoundRepo(), &fakeUploader{})

	status, err := svc.GetEntryStatus(context.Background(), 10, 1)
	require.NoError(t, err)
	assert.False(t, status.Entered)
	assert.Nil(t, status.Status)

	_, err = svc.EnterCompetition(context.Background(), 10, 1)
	require.NoError(t, err)

	status, err = svc.GetEntryStatus(context.Background(), 10, 1)
	require.NoError(t, err)
	assert.True(t, status.Entered)
	require.NotNil(t, status.Status)
	assert.Equal(t, models.PaymentPaid, *status.Status)
}

func TestGetCompetitionAttachesClassifiedRounds(t *testing.T) {
	now := time.Now()
	competitionRepo := newFakeCompetitionRepo(models.Competition{ID: 1, Status: models.CompetitionActive})
	roundRepo := newFakeRoundRepo(
		models.Round{ID: 1, CompetitionID: 1, RoundNumber: 1, DeadlineDate: now.Add(-time.Hour)},
		models.Round{ID: 2, CompetitionID: 1, RoundNumber: 2, DeadlineDate: now.Add(time.Hour)},
	)
	svc := newCompetitionServiceForTest(competitionRepo, newFakePaymentRepo(), roundRepo, &fakeUploader{})

	competition, err := svc.GetCompetition(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, competition.Rounds, 2)
	assert.Equal(t, models.RoundPast, competition.Rounds[0].Status)
	assert.Equal(t, models.RoundCurrent, competition.Rounds[1].Status)
}

func TestUploadCompetitionCrestReplacesOldKey(t *testing.T) {
	oldKey := "crests/competitions/1.png"
	competitionRepo := newFakeCompetitionRepo(models.Competition{ID: 1, Status: models.CompetitionActive, CrestKey: &oldKey})
	uploader := &fakeUploader{baseURL: "https://cdn.example.com"}
	svc := newCompetitionServiceForTest(competitionRepo, newFakePaymentRepo(), newFakeRoundRepo(), uploader)

	competition, err := svc.UploadCompetitionCrest(context.Background(), 1, "image/jpeg", strings.NewReader("img"))
	require.NoError(t, err)

	require.NotNil(t, competition.CrestKey)
	assert.Equal(t, "crests/competitions/1.jpg", *competition.CrestKey)
	require.NotNil(t, competition.CrestURL)
	assert.Equal(t, "https://cdn.example.com/crests/competitions/1.jpg", *competition.CrestURL)
	assert.Equal(t, []string{oldKey}, uploader.deleted)
}

func TestUploadCompetitionCrestRejectsUnknownContentType(t *testing.T) {
	competitionRepo := newFakeCompetitionRepo(models.Competition{ID: 1, Status: models.CompetitionActive})
	svc := newCompetitionServiceForTest(competitionRepo, newFakePaymentRepo(), newFakeRoundRepo(), &fakeUploader{})

	_, err := svc.UploadCompetitionCrest(context.Background(), 1, "application/pdf", strings.NewReader("doc"))
	assert.ErrorIs(t, err, ErrValidationFailed)
}
