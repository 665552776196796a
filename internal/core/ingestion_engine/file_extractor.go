package ingestion_engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/danielokon-py/Tutora/internal/core"
	"github.com/danielokon-py/Tutora/internal/models"
)

// Binary formats are handed to the remote file store untouched; the model
// reads them directly. Document formats are extracted to text locally.
var uploadMIMEByExt = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// ProcessUpload turns an uploaded file into a source ready for ingestion.
// PDF and image bytes are uploaded to the vendor file store and referenced
// by URI; DOCX is extracted to plain text; TXT/MD are decoded as UTF-8. The
// returned source has no ID yet; the notebook registry assigns one.
func (p *Pipeline) ProcessUpload(ctx context.Context, filename, declaredType string, data []byte) (models.Source, error) {
	name := filepath.Base(filename)
	src := models.Source{
		Type: models.SourceFile,
		Name: name,
		Size: int64(len(data)),
	}

	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case uploadMIMEByExt[ext] != "":
		mimeType := uploadMIMEByExt[ext]
		remote, err := p.files.Upload(ctx, data, name, mimeType)
		if err != nil {
			return models.Source{}, err
		}
		src.FileURI = remote.URI
		src.MIMEType = remote.MIMEType

	case ext == ".docx":
		text, err := p.docs.ExtractText(data, docxMIME)
		if err != nil {
			return models.Source{}, core.WrapErr(core.KindProcessingFailed, err, "extract text from %q", name)
		}
		src.Content = text

	case ext == ".txt" || ext == ".md":
		if !utf8.Valid(data) {
			return models.Source{}, core.E(core.KindUnsupportedType, "%q is not valid UTF-8 text", name)
		}
		src.Content = string(data)

	default:
		return models.Source{}, core.E(core.KindUnsupportedType,
			"unsupported file type %q (declared %q); allowed: pdf, docx, txt, md, jpg, png, webp", ext, declaredType)
	}

	if src.Content == "" && src.FileURI == "" {
		return models.Source{}, core.E(core.KindProcessingFailed, "no usable content in %q", name)
	}
	return src, nil
}

// extractFile emits prompt parts for an already-processed file source:
// either its remote file handle or its extracted text.
func (p *Pipeline) extractFile(src models.Source) ([]models.PromptPart, error) {
	header := models.TextPart(fmt.Sprintf("=== Source: %s (file) ===", src.Name))

	if src.FileURI != "" {
		return []models.PromptPart{header, models.FilePart(src.FileURI, src.MIMEType)}, nil
	}
	if strings.TrimSpace(src.Content) != "" {
		return []models.PromptPart{header, models.TextPart(src.Content)}, nil
	}
	return nil, core.E(core.KindInvalidInput, "file source %q has neither content nor a remote file handle", src.Name)
}
