package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/kuanyshev/lastman-system/models"
	"github.com/kuanyshev/lastman-system/repositories"
	"github.com/kuanyshev/lastman-system/storage"
)

// EntryStatus — статус участия пользователя в соревновании.
type EntryStatus struct {
	Entered bool                  `json:"is_entered"`
	Status  *models.PaymentStatus `json:"status,omitempty"`
}

type CompetitionService interface {
	// ListCompetitions возвращает соревнования с классифицированными турами.
	ListCompetitions(ctx context.Context, filter repositories.ListCompetitionsFilter) ([]models.Competition, error)
	GetCompetition(ctx context.Context, competitionID int) (*models.Competition, error)

	// EnterCompetition записывает пользователя в соревнование. Повторный
	// вход возвращает ErrAlreadyEntered.
	EnterCompetition(ctx context.Context, userID, competitionID int) (*models.Payment, error)
	GetEntryStatus(ctx context.Context, userID, competitionID int) (*EntryStatus, error)

	UploadCompetitionCrest(ctx context.Context, competitionID int, contentType string, reader io.Reader) (*models.Competition, error)
}

type competitionService struct {
	competitionRepo repositories.CompetitionRepository
	paymentRepo     repositories.PaymentRepository
	roundService    RoundService
	uploader        storage.FileUploader
	logger          *slog.Logger
}

func NewCompetitionService(
	competitionRepo repositories.CompetitionRepository,
	paymentRepo repositories.PaymentRepository,
	roundService RoundService,
	uploader storage.FileUploader,
	logger *slog.Logger,
) CompetitionService {
	return &competitionService{
		competitionRepo: competitionRepo,
		paymentRepo:     paymentRepo,
		roundService:    roundService,
		uploader:        uploader,
		logger:          logger,
	}
}

func (s *competitionService) ListCompetitions(ctx context.Context, filter repositories.ListCompetitionsFilter) ([]models.Competition, error) {
	competitions, err := s.competitionRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitions: %w", err)
	}

	for i := range competitions {
		populateCompetitionCrestURLFunc(&competitions[i], s.uploader)

		rounds, err := s.roundService.GetCompetitionRounds(ctx, competitions[i].ID, false)
		if err != nil {
			// Список соревнований полезен и без туров, ошибку не поднимаем.
			s.logger.ErrorContext(ctx, "failed to load competition rounds",
				slog.Int("competition_id", competitions[i].ID), slog.Any("error", err))
			continue
		}
		competitions[i].Rounds = rounds
	}
	return competitions, nil
}

func (s *competitionService) GetCompetition(ctx context.Context, competitionID int) (*models.Competition, error) {
	competition, err := s.competitionRepo.GetByID(ctx, competitionID)
	if err != nil {
		if errors.Is(err, repositories.ErrCompetitionNotFound) {
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to get competition %d: %w", competitionID, err)
	}

	populateCompetitionCrestURLFunc(competition, s.uploader)

	rounds, err := s.roundService.GetCompetitionRounds(ctx, competitionID, false)
	if err != nil {
		return nil, err
	}
	competition.Rounds = rounds
	return competition, nil
}

func (s *competitionService) EnterCompetition(ctx context.Context, userID, competitionID int) (*models.Payment, error) {
	competition, err := s.competitionRepo.GetByID(ctx, competitionID)
	if err != nil {
		if errors.Is(err, repositories.ErrCompetitionNotFound) {
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to get competition %d: %w", competitionID, err)
	}

	if competition.Status != models.CompetitionActive && competition.Status != models.CompetitionUpcoming {
		return nil, fmt.Errorf("%w: competition status is '%s'", ErrCompetitionNotOpen, competition.Status)
	}

	payment := &models.Payment{
		UserID:        userID,
		CompetitionID: competitionID,
		Amount:        competition.EntryFee,
		Status:        models.PaymentPaid,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		switch {
		case errors.Is(err, repositories.ErrPaymentConflict):
			return nil, ErrAlreadyEntered
		case errors.Is(err, repositories.ErrPaymentCompetitionInvalid):
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}

	s.logger.InfoContext(ctx, "user entered competition",
		slog.Int("user_id", userID), slog.Int("competition_id", competitionID))
	return payment, nil
}

func (s *competitionService) GetEntryStatus(ctx context.Context, userID, competitionID int) (*EntryStatus, error) {
	payment, err := s.paymentRepo.GetByUserAndCompetition(ctx, userID, competitionID)
	if err != nil {
		if errors.Is(err, repositories.ErrPaymentNotFound) {
			return &EntryStatus{Entered: false}, nil
		}
		return nil, fmt.Errorf("failed to get entry status: %w", err)
	}
	return &EntryStatus{Entered: true, Status: &payment.Status}, nil
}

func (s *competitionService) UploadCompetitionCrest(ctx context.Context, competitionID int, contentType string, reader io.Reader) (*models.Competition, error) {
	competition, err := s.competitionRepo.GetByID(ctx, competitionID)
	if err != nil {
		if errors.Is(err, repositories.ErrCompetitionNotFound) {
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to get competition %d: %w", competitionID, err)
	}

	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	oldKey := competition.CrestKey
	key := fmt.Sprintf("crests/competitions/%d%s", competitionID, ext)

	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to upload crest: %w", err)
	}

	if err := s.competitionRepo.UpdateCrestKey(ctx, competitionID, &result.Key); err != nil {
		// Загруженный, но не записанный файл подчищаем сразу.
		if delErr := s.uploader.Delete(context.WithoutCancel(ctx), result.Key); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to delete orphaned crest", slog.String("key", result.Key), slog.Any("error", delErr))
		}
		return nil, fmt.Errorf("failed to save crest key: %w", err)
	}

	if oldKey != nil && *oldKey != "" && *oldKey != result.Key {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete previous crest", slog.String("key", *oldKey), slog.Any("error", delErr))
		}
	}

	competition.CrestKey = &result.Key
	populateCompetitionCrestURLFunc(competition, s.uploader)
	return competition, nil
}
