package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	CronSecret   string
	ServerPort   int

	// SelectionWindow — сколько туров после текущего открыто для выбора.
	SelectionWindow int
	// SelectionHorizon — дополнительный лимит по времени: дедлайн тура
	// должен попадать в этот горизонт от "сейчас". Отдельный параметр,
	// не выражение окна в днях.
	SelectionHorizon time.Duration
	// RoundCacheTTL — срок жизни кэша туров соревнования.
	RoundCacheTTL time.Duration

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

const (
	defaultSelectionWindow       = 4
	defaultSelectionHorizonWeeks = 5
	defaultRoundCacheTTL         = 60 * time.Second
	defaultServerPort            = "8080"
)

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	cronSecret := os.Getenv("CRON_SECRET")
	if cronSecret == "" {
		return nil, fmt.Errorf("CRON_SECRET environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = defaultServerPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	window := defaultSelectionWindow
	if windowStr := os.Getenv("SELECTION_WINDOW"); windowStr != "" {
		window, err = strconv.Atoi(windowStr)
		if err != nil || window < 0 {
			return nil, fmt.Errorf("SELECTION_WINDOW must be a non-negative integer, got %q", windowStr)
		}
	}

	horizonWeeks := defaultSelectionHorizonWeeks
	if horizonStr := os.Getenv("SELECTION_HORIZON_WEEKS"); horizonStr != "" {
		horizonWeeks, err = strconv.Atoi(horizonStr)
		if err != nil || horizonWeeks <= 0 {
			return nil, fmt.Errorf("SELECTION_HORIZON_WEEKS must be a positive integer, got %q", horizonStr)
		}
	}

	cacheTTL := defaultRoundCacheTTL
	if ttlStr := os.Getenv("ROUND_CACHE_TTL"); ttlStr != "" {
		cacheTTL, err = time.ParseDuration(ttlStr)
		if err != nil || cacheTTL < 0 {
			return nil, fmt.Errorf("invalid ROUND_CACHE_TTL environment variable: %q", ttlStr)
		}
	}

	cfg := &Config{
		DatabaseURL:       dbURL,
		JWTSecretKey:      jwtKey,
		CronSecret:        cronSecret,
		ServerPort:        port,
		SelectionWindow:   window,
		SelectionHorizon:  time.Duration(horizonWeeks) * 7 * 24 * time.Hour,
		RoundCacheTTL:     cacheTTL,
		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	return cfg, nil
}
