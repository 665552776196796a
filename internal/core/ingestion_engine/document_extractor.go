package ingestion_engine

import (
	"bytes"
	"strings"

	"code.sajari.com/docconv"

	"github.com/danielokon-py/Tutora/internal/core"
)

var _ core.DocumentExtractor = (*DocconvExtractor)(nil)

// DocconvExtractor implements core.DocumentExtractor using sajari/docconv.
type DocconvExtractor struct {
	useReadability bool
}

func NewDocconvExtractor(useReadability bool) *DocconvExtractor {
	return &DocconvExtractor{useReadability: useReadability}
}

// ExtractText converts the document bytes to plain text based on the
// declared content type.
func (e *DocconvExtractor) ExtractText(data []byte, contentType string) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(data), contentType, e.useReadability)
	if err != nil {
		return "", core.WrapErr(core.KindProcessingFailed, err, "docconv extraction for content type %q", contentType)
	}
	text := strings.TrimSpace(res.Body)
	if text == "" {
		return "", core.E(core.KindProcessingFailed, "docconv extracted empty text for content type %q", contentType)
	}
	return text, nil
}
