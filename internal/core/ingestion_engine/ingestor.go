package ingestion_engine

import (
	"context"

	"github.com/danielokon-py/Tutora/internal/models"
)

type Ingestor interface {
	// Ingest converts a source list into LLM-ready study material.
	// useDefaults permits falling back to the environment-configured default
	// sources when the list is empty (default notebook only).
	Ingest(ctx context.Context, sources []models.Source, useDefaults bool) (*models.StudyMaterial, error)

	// ProcessUpload resolves an uploaded file into a source: binary formats
	// are pushed to the remote file store, document formats are extracted to
	// inline text.
	ProcessUpload(ctx context.Context, filename, declaredType string, data []byte) (models.Source, error)
}
