package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/danielokon-py/Tutora/internal/config"
	"github.com/danielokon-py/Tutora/internal/core"
	"github.com/danielokon-py/Tutora/internal/core/ingestion_engine"
	"github.com/danielokon-py/Tutora/internal/core/llm"
	objectclient "github.com/danielokon-py/Tutora/internal/core/object-client"
	"github.com/danielokon-py/Tutora/internal/models"
	"github.com/danielokon-py/Tutora/internal/services"
)

type App struct {
	LLM       *llm.GeminiLLM
	Notebooks *services.NotebookService
	Study     *services.StudyService
	Server    *Server
	log       *zap.Logger
}

func NewApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	llmProvider, err := llm.NewGeminiLLM(ctx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, err
	}
	fileStore := llm.NewGeminiFileStore(llmProvider.Client(), cfg.UploadPollInterval, cfg.UploadPollAttempts)

	var archive core.ObjectClient
	if cfg.ArchiveEnabled() {
		archive, err = objectclient.NewS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Info("upload archive enabled", zap.String("bucket", cfg.BucketName))
	}

	extractor := ingestion_engine.NewDocconvExtractor(false)
	pipeline := ingestion_engine.NewPipeline(fileStore, extractor, nil, defaultSources(cfg), log)

	notebooks := services.NewNotebookService(log)
	study := services.NewStudyService(notebooks, pipeline, llmProvider, log)

	server := NewServer(cfg, notebooks, study, pipeline, llmProvider, archive, log)

	return &App{
		LLM:       llmProvider,
		Notebooks: notebooks,
		Study:     study,
		Server:    server,
		log:       log,
	}, nil
}

// defaultSources builds the environment-configured fallback material the
// default notebook ingests when it holds no sources of its own.
func defaultSources(cfg *config.Config) []models.Source {
	var out []models.Source
	if cfg.DefaultTextbookURL != "" {
		out = append(out, models.Source{
			ID:   "default-textbook",
			Type: models.SourceDrive,
			Name: "Course Textbook",
			URL:  cfg.DefaultTextbookURL,
		})
	}
	for i, url := range cfg.DefaultVideoURLs {
		out = append(out, models.Source{
			ID:   fmt.Sprintf("default-video-%d", i+1),
			Type: models.SourceYouTube,
			Name: fmt.Sprintf("Lecture Video %d", i+1),
			URL:  url,
		})
	}
	return out
}

func (a *App) Close() {
	if a.LLM != nil {
		_ = a.LLM.Close()
	}
}
