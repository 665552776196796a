package ingestion_engine

import (
	"fmt"
	"strings"

	"github.com/danielokon-py/Tutora/internal/core"
	"github.com/danielokon-py/Tutora/internal/models"
)

// extractText wraps pasted content verbatim under a header naming the
// source, so the model can cite it by name.
func extractText(src models.Source) ([]models.PromptPart, error) {
	if strings.TrimSpace(src.Content) == "" {
		return nil, core.E(core.KindInvalidInput, "text source %q has no content", src.Name)
	}
	return []models.PromptPart{
		models.TextPart(fmt.Sprintf("=== Source: %s (text) ===\n%s", src.Name, src.Content)),
	}, nil
}
