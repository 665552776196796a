package services

import (
	"regexp"
	"strings"

	"github.com/danielokon-py/Tutora/internal/models"
)

// Refusal is the fixed sentence returned when an answer cannot be verified
// as grounded in the study material.
const Refusal = "I don't have enough information in the study materials to answer that."

// GroundingMode selects how strictly an answer is checked.
type GroundingMode int

const (
	// ModeQA rewrites ungrounded answers to the refusal sentence.
	ModeQA GroundingMode = iota
	// ModeDialogue never rewrites; a voice conversation should not surface
	// an abrupt canned refusal mid-chat. Only the grounded flag varies.
	ModeDialogue
)

// GroundingResult is the policy's verdict on one raw model answer.
type GroundingResult struct {
	Answer     string
	IsGrounded bool
}

var (
	youtubeMarkerRe = regexp.MustCompile(`(?i)\byoutube\b`)
	timestampRe     = regexp.MustCompile(`\b\d{1,2}:\d{2}(?:\s*[-–—]\s*\d{1,2}:\d{2})?\b`)
	physicalPageRe  = regexp.MustCompile(`(?i)page\s+\d+\s*\(physical\)`)
	greetingRe      = regexp.MustCompile(`(?i)^\s*(hello|hi|hey|thanks|thank you|bye|goodbye|good\s+(morning|afternoon|evening)|you're welcome|okay|ok|sure|no problem)\b`)
)

// CitesMaterial reports whether the text contains any accepted citation:
// a YouTube reference or timestamp, a physical-page citation, or a verbatim
// (case-insensitive) occurrence of a source's display name. Any one match
// is sufficient.
func CitesMaterial(text string, sourceNames []string) bool {
	if youtubeMarkerRe.MatchString(text) || timestampRe.MatchString(text) || physicalPageRe.MatchString(text) {
		return true
	}
	for _, name := range sourceNames {
		if name == "" {
			continue
		}
		nameRe, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(name))
		if err != nil {
			continue
		}
		if nameRe.MatchString(text) {
			return true
		}
	}
	return false
}

// isSmallTalk accepts greetings and short statements that need no citation:
// an opening greeting phrase, or fewer than 15 words with no question mark.
func isSmallTalk(text string) bool {
	if greetingRe.MatchString(text) {
		return true
	}
	return len(strings.Fields(text)) < 15 && !strings.Contains(text, "?")
}

// EnforceGrounding applies the grounding policy to a raw model answer.
//
// QA mode: the answer passes only if non-empty, not already the refusal,
// and citing the material; otherwise the refusal sentence replaces it.
// Dialogue mode: small talk passes as grounded; everything else passes
// verbatim with the grounded flag reflecting citation detection.
func EnforceGrounding(raw string, material *models.StudyMaterial, mode GroundingMode) GroundingResult {
	text := strings.TrimSpace(raw)
	var names []string
	if material != nil {
		names = material.SourceNames()
	}

	switch mode {
	case ModeDialogue:
		if isSmallTalk(text) {
			return GroundingResult{Answer: text, IsGrounded: true}
		}
		return GroundingResult{Answer: text, IsGrounded: CitesMaterial(text, names)}
	default:
		if text == "" || text == Refusal || !CitesMaterial(text, names) {
			return GroundingResult{Answer: Refusal, IsGrounded: false}
		}
		return GroundingResult{Answer: text, IsGrounded: true}
	}
}
