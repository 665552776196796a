package ingestion_engine

import (
	"fmt"
	"regexp"

	"github.com/danielokon-py/Tutora/internal/core"
	"github.com/danielokon-py/Tutora/internal/models"
)

var youtubeIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[?&]v=([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`/embed/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`/shorts/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`^([A-Za-z0-9_-]{11})$`),
}

// ExtractYouTubeVideoID matches the common YouTube URL shapes (watch,
// youtu.be, embed, shorts) plus a bare 11-character video id.
func ExtractYouTubeVideoID(rawURL string) (string, error) {
	for _, re := range youtubeIDPatterns {
		if m := re.FindStringSubmatch(rawURL); m != nil {
			return m[1], nil
		}
	}
	return "", core.E(core.KindInvalidURL, "no YouTube video id found in %q", rawURL)
}

// extractYouTube emits an instruction fragment pointing the model at the
// video. The model's built-in video understanding does the heavy lifting;
// no transcript is fetched.
func extractYouTube(src models.Source) ([]models.PromptPart, error) {
	videoID, err := ExtractYouTubeVideoID(src.URL)
	if err != nil {
		return nil, err
	}
	return []models.PromptPart{
		models.TextPart(fmt.Sprintf(
			"=== Source: %s (youtube) ===\nUse your video understanding capability for the YouTube video %s (video id %s). When material from this video supports an answer, cite it as the YouTube video with MM:SS timestamps.",
			src.Name, src.URL, videoID)),
	}, nil
}
