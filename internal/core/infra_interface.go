package core

import (
	"context"

	"github.com/danielokon-py/Tutora/internal/models"
)

// LLMProvider generates free text from an ordered list of prompt parts
// (inline text and remote-file references).
type LLMProvider interface {
	GenerateContent(ctx context.Context, parts []models.PromptPart) (string, error)
}

// FileStore uploads binary content to the LLM vendor's file storage and
// returns a stable handle once the file is ready to be referenced from a
// prompt. Implementations poll the vendor's status endpoint with a bounded
// interval and attempt count.
type FileStore interface {
	Upload(ctx context.Context, data []byte, displayName, mimeType string) (*models.RemoteFile, error)
}

// DocumentExtractor extracts plain text from a local document buffer.
type DocumentExtractor interface {
	ExtractText(data []byte, contentType string) (string, error)
}

// ObjectClient defines interactions with S3 or any object storage.
// Abstract so AWS can be replaced with MinIO, GCP, etc. easily.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
}
