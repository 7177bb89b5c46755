package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/trousev/mealcontrol/internal/config"
	"github.com/trousev/mealcontrol/internal/db"
	"github.com/trousev/mealcontrol/internal/detection"
	"github.com/trousev/mealcontrol/internal/inference/openai"
	"github.com/trousev/mealcontrol/internal/logging"
	"github.com/trousev/mealcontrol/internal/photostore/local"
	"github.com/trousev/mealcontrol/internal/service"
	"github.com/trousev/mealcontrol/internal/store"
	"github.com/trousev/mealcontrol/internal/web"
)

// apiKeyProvider prefers the key stored in settings and falls back to the
// OPENAI_API_KEY environment value.
type apiKeyProvider struct {
	settings *store.SettingsStore
	fallback string
}

func (p *apiKeyProvider) APIKey(ctx context.Context) (string, error) {
	key, err := p.settings.APIKey(ctx)
	if err != nil {
		return "", err
	}
	if key == "" {
		key = p.fallback
	}
	return key, nil
}

func main() {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	conversations := store.NewConversationStore(database)
	meals := store.NewMealStore(database)
	settings := store.NewSettingsStore(database)

	photos, err := local.NewLocalPhotoStore(cfg.PhotoPath)
	if err != nil {
		logger.Error("failed to initialize photo store", "error", err)
		return
	}

	creds := &apiKeyProvider{settings: settings, fallback: cfg.OpenAIAPIKey}

	client := openai.NewClient(creds, openai.Config{
		BaseURL:       cfg.OpenAIBaseURL,
		Model:         cfg.OpenAIModel,
		PromptID:      cfg.PromptID,
		PromptVersion: cfg.PromptVersion,
		Timeout:       cfg.RequestTimeout,
	})

	session := detection.NewSession(client, conversations, creds, logger)
	mealService := service.NewMealService(meals, settings, logger)

	server := web.NewServer(session, mealService, settings, photos, logger)
	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}
