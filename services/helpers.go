package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kuanyshev/lastman-system/models"
	"github.com/kuanyshev/lastman-system/storage"
)

// --- Общие хелперы ---

// competitionRoom — имя комнаты websocket-хаба для соревнования.
func competitionRoom(competitionID int) string {
	return "competition_" + strconv.Itoa(competitionID)
}

func populateCompetitionCrestURLFunc(competition *models.Competition, uploader storage.FileUploader) {
	if competition != nil && competition.CrestKey != nil && *competition.CrestKey != "" && uploader != nil {
		url := uploader.GetPublicURL(*competition.CrestKey)
		if url != "" {
			competition.CrestURL = &url
		}
	}
}

func populateTeamCrestURLFunc(team *models.Team, uploader storage.FileUploader) {
	if team != nil && team.CrestKey != nil && *team.CrestKey != "" && uploader != nil {
		url := uploader.GetPublicURL(*team.CrestKey)
		if url != "" {
			team.CrestURL = &url
		}
	}
}

// GetExtensionFromContentType подбирает расширение файла по content type
// загружаемой эмблемы.
func GetExtensionFromContentType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	case "image/svg+xml":
		return ".svg", nil
	default:
		parts := strings.Split(contentType, "/")
		if len(parts) == 2 && strings.HasPrefix(parts[0], "image") && parts[1] != "" {
			return "." + strings.Split(parts[1], "+")[0], nil
		}
		return "", fmt.Errorf("could not determine file extension from content type: '%s'", contentType)
	}
}
