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

type TeamService interface {
	// LookupTeam ищет команду сначала по внутреннему ID, затем по внешнему
	// ID провайдера.
	LookupTeam(ctx context.Context, id int) (*models.Team, error)
	UploadTeamCrest(ctx context.Context, teamID int, contentType string, reader io.Reader) (*models.Team, error)
}

type teamService struct {
	teamRepo repositories.TeamRepository
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewTeamService(teamRepo repositories.TeamRepository, uploader storage.FileUploader, logger *slog.Logger) TeamService {
	return &teamService{teamRepo: teamRepo, uploader: uploader, logger: logger}
}

func (s *teamService) LookupTeam(ctx context.Context, id int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err == nil {
		populateTeamCrestURLFunc(team, s.uploader)
		return team, nil
	}
	if !errors.Is(err, repositories.ErrTeamNotFound) {
		return nil, fmt.Errorf("failed to get team %d: %w", id, err)
	}

	team, err = s.teamRepo.GetByExternalID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team by external id %d: %w", id, err)
	}
	populateTeamCrestURLFunc(team, s.uploader)
	return team, nil
}

func (s *teamService) UploadTeamCrest(ctx context.Context, teamID int, contentType string, reader io.Reader) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", teamID, err)
	}

	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	oldKey := team.CrestKey
	key := fmt.Sprintf("crests/teams/%d%s", teamID, ext)

	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to upload crest: %w", err)
	}

	if err := s.teamRepo.UpdateCrestKey(ctx, teamID, &result.Key); err != nil {
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

	team.CrestKey = &result.Key
	populateTeamCrestURLFunc(team, s.uploader)
	return team, nil
}
