package llm

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/google/generative-ai-go/genai"

	"github.com/danielokon-py/Tutora/internal/core"
	"github.com/danielokon-py/Tutora/internal/models"
)

// fileAPI is the slice of the genai client the file store uses, narrowed so
// the poll protocol can be tested without a live client.
type fileAPI interface {
	UploadFile(ctx context.Context, name string, r io.Reader, opts *genai.UploadFileOptions) (*genai.File, error)
	GetFile(ctx context.Context, name string) (*genai.File, error)
}

// GeminiFileStore uploads binaries to the Gemini File API and polls until
// the file leaves the PROCESSING state. PDFs and images go through here so
// the model consumes them directly instead of a local text extraction.
type GeminiFileStore struct {
	client       fileAPI
	pollInterval time.Duration
	maxAttempts  int
}

func NewGeminiFileStore(client *genai.Client, pollInterval time.Duration, maxAttempts int) *GeminiFileStore {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 45
	}
	return &GeminiFileStore{client: client, pollInterval: pollInterval, maxAttempts: maxAttempts}
}

// Upload stores the binary under displayName and blocks until the vendor
// reports it active. Polling is bounded: exhaustion surfaces as
// ProcessingTimeout, a terminal FAILED state as ProcessingFailed.
func (s *GeminiFileStore) Upload(ctx context.Context, data []byte, displayName, mimeType string) (*models.RemoteFile, error) {
	opts := &genai.UploadFileOptions{DisplayName: displayName, MIMEType: mimeType}

	file, err := s.client.UploadFile(ctx, "", bytes.NewReader(data), opts)
	if err != nil {
		return nil, core.WrapErr(core.KindUpstreamFailure, err, "upload %q to file store", displayName)
	}

	for attempt := 0; file.State == genai.FileStateProcessing; attempt++ {
		if attempt >= s.maxAttempts {
			return nil, core.E(core.KindProcessingTimeout,
				"file %q still processing after %d polls", displayName, s.maxAttempts)
		}
		select {
		case <-ctx.Done():
			return nil, core.WrapErr(core.KindUpstreamFailure, ctx.Err(), "upload %q canceled", displayName)
		case <-time.After(s.pollInterval):
		}
		file, err = s.client.GetFile(ctx, file.Name)
		if err != nil {
			return nil, core.WrapErr(core.KindUpstreamFailure, err, "poll file %q", displayName)
		}
	}

	if file.State == genai.FileStateFailed {
		return nil, core.E(core.KindProcessingFailed, "file store rejected %q", displayName)
	}

	out := &models.RemoteFile{URI: file.URI, MIMEType: file.MIMEType, Name: file.Name}
	if out.MIMEType == "" {
		out.MIMEType = mimeType
	}
	return out, nil
}

var _ core.FileStore = (*GeminiFileStore)(nil)
