package ingestion_engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"go.uber.org/zap"

	"github.com/danielokon-py/Tutora/internal/core"
	"github.com/danielokon-py/Tutora/internal/models"
)

// maxDriveDownloadBytes caps how much of a drive file is read into memory.
const maxDriveDownloadBytes = 50 << 20

var driveIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`),
}

// ExtractDriveFileID pulls the file identifier out of a Google Drive share
// URL. Both the /file/d/<id> and ?id=<id> shapes are accepted.
func ExtractDriveFileID(rawURL string) (string, error) {
	for _, re := range driveIDPatterns {
		if m := re.FindStringSubmatch(rawURL); m != nil {
			return m[1], nil
		}
	}
	return "", core.E(core.KindInvalidURL, "no Google Drive file id found in %q", rawURL)
}

// extractDrive downloads the drive file, uploads it to the remote file
// store, and, for PDFs, appends a synthetic fragment telling the model to
// cite physical page numbers within the document's real page range.
func (p *Pipeline) extractDrive(ctx context.Context, src models.Source) ([]models.PromptPart, error) {
	fileID, err := ExtractDriveFileID(src.URL)
	if err != nil {
		return nil, err
	}

	downloadURL := fmt.Sprintf("https://drive.google.com/uc?export=download&id=%s", fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, core.WrapErr(core.KindUpstreamFailure, err, "build drive request for %q", src.Name)
	}
	resp, err := p.httpc.Do(req)
	if err != nil {
		return nil, core.WrapErr(core.KindUpstreamFailure, err, "download drive file %q", src.Name)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, core.E(core.KindUpstreamFailure, "drive returned status %d for %q", resp.StatusCode, src.Name)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDriveDownloadBytes))
	if err != nil {
		return nil, core.WrapErr(core.KindUpstreamFailure, err, "read drive file %q", src.Name)
	}
	if len(data) == 0 {
		return nil, core.E(core.KindProcessingFailed, "drive file %q is empty", src.Name)
	}

	mimeType := resp.Header.Get("Content-Type")
	isPDF := bytes.HasPrefix(data, []byte("%PDF"))
	if isPDF {
		mimeType = "application/pdf"
	} else if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	pageCount := 0
	if isPDF {
		if pageCount, err = pdfPageCount(data); err != nil {
			p.log.Warn("could not determine PDF page count",
				zap.String("source", src.Name), zap.Error(err))
			pageCount = 0
		}
	}

	remote, err := p.files.Upload(ctx, data, src.Name, mimeType)
	if err != nil {
		return nil, err
	}

	parts := []models.PromptPart{
		models.TextPart(fmt.Sprintf("=== Source: %s (drive) ===", src.Name)),
		models.FilePart(remote.URI, remote.MIMEType),
	}
	if pageCount > 0 {
		parts = append(parts, models.TextPart(fmt.Sprintf(
			"The document %q has %d physical pages. When citing it, use physical page numbers in the form \"page N (physical)\" with N between 1 and %d, not the page numbers printed on the pages.",
			src.Name, pageCount, pageCount)))
	}
	return parts, nil
}
