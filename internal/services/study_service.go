package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/danielokon-py/Tutora/internal/core"
	"github.com/danielokon-py/Tutora/internal/core/ingestion_engine"
	"github.com/danielokon-py/Tutora/internal/models"
)

// StudyService runs the four orchestrators (ask, dialogue, summary,
// suggest-questions). Each follows the same shape: make sure study material
// exists for the notebook (re-ingesting when the source list changed),
// assemble system prompt + context parts + task, call the model, and
// post-process the raw text.
type StudyService struct {
	notebooks *NotebookService
	ingestor  ingestion_engine.Ingestor
	llm       core.LLMProvider
	log       *zap.Logger
}

func NewStudyService(notebooks *NotebookService, ingestor ingestion_engine.Ingestor, llm core.LLMProvider, log *zap.Logger) *StudyService {
	if log == nil {
		log = zap.NewNop()
	}
	return &StudyService{notebooks: notebooks, ingestor: ingestor, llm: llm, log: log}
}

// Ingest runs the pipeline explicitly and stores the resulting material.
func (s *StudyService) Ingest(ctx context.Context, notebookID string) (*models.StudyMaterial, error) {
	unlock, err := s.notebooks.LockIngest(notebookID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.ingestLocked(ctx, notebookID)
}

func (s *StudyService) ingestLocked(ctx context.Context, notebookID string) (*models.StudyMaterial, error) {
	sources, err := s.notebooks.Sources(notebookID)
	if err != nil {
		return nil, err
	}
	material, err := s.ingestor.Ingest(ctx, sources, notebookID == DefaultNotebookID)
	if err != nil {
		return nil, err
	}
	// AddSource and RemoveSource do not hold the ingest lock, so the
	// source list can change while the pipeline runs. Stale material must
	// not overwrite newer notebook state; the next read re-ingests.
	current, err := s.notebooks.Signature(notebookID)
	if err != nil {
		return nil, err
	}
	if current != material.Signature {
		s.log.Info("sources changed during ingestion, discarding result",
			zap.String("notebook", notebookID))
		return material, nil
	}
	if err := s.notebooks.SetMaterial(notebookID, material); err != nil {
		return nil, err
	}
	return material, nil
}

// ensureMaterial returns current material, re-ingesting when the notebook's
// source list no longer matches the material's signature. Serialized per
// notebook so concurrent requests cannot both re-ingest.
func (s *StudyService) ensureMaterial(ctx context.Context, notebookID string) (*models.StudyMaterial, error) {
	unlock, err := s.notebooks.LockIngest(notebookID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	material, err := s.notebooks.Material(notebookID)
	if err != nil {
		return nil, err
	}
	signature, err := s.notebooks.Signature(notebookID)
	if err != nil {
		return nil, err
	}
	if material != nil && material.Signature == signature {
		return material, nil
	}
	if material != nil {
		s.log.Info("study material stale, re-ingesting", zap.String("notebook", notebookID))
	}

	material, err = s.ingestLocked(ctx, notebookID)
	if err != nil {
		if core.KindOf(err) == core.KindNoSources {
			return nil, core.E(core.KindMaterialNotIngested,
				"no study material ingested for this notebook; add a source first")
		}
		return nil, err
	}
	return material, nil
}

// buildPrompt assembles the ordered prompt: system text, context parts,
// then the task-specific instruction.
func buildPrompt(system string, material *models.StudyMaterial, task string) []models.PromptPart {
	parts := make([]models.PromptPart, 0, len(material.ContextParts)+3)
	parts = append(parts, models.TextPart(system), models.TextPart("Study material:"))
	parts = append(parts, material.ContextParts...)
	parts = append(parts, models.TextPart(task))
	return parts
}

// answer runs one strict Q&A round against the material without touching
// any history. Shared by Ask and suggested-question verification.
func (s *StudyService) answer(ctx context.Context, material *models.StudyMaterial, question string) (GroundingResult, error) {
	parts := buildPrompt(qaSystemPrompt, material, "Question: "+question)
	raw, err := s.llm.GenerateContent(ctx, parts)
	if err != nil {
		return GroundingResult{}, err
	}
	return EnforceGrounding(raw, material, ModeQA), nil
}

// Ask answers a written question in strict mode and records the exchange.
func (s *StudyService) Ask(ctx context.Context, notebookID, question string) (models.QAEntry, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.QAEntry{}, core.E(core.KindInvalidInput, "question is required")
	}
	material, err := s.ensureMaterial(ctx, notebookID)
	if err != nil {
		return models.QAEntry{}, err
	}

	result, err := s.answer(ctx, material, question)
	if err != nil {
		return models.QAEntry{}, err
	}

	entry := models.QAEntry{
		Question:   question,
		Answer:     result.Answer,
		IsGrounded: result.IsGrounded,
		Sources:    material.SourceNames(),
		Timestamp:  time.Now(),
	}
	if err := s.notebooks.AppendQA(notebookID, entry); err != nil {
		return models.QAEntry{}, err
	}
	return entry, nil
}

// Dialogue runs one voice-conversation turn with conversational memory and
// lenient grounding, and records the turn.
func (s *StudyService) Dialogue(ctx context.Context, notebookID, message string) (models.ConversationTurn, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return models.ConversationTurn{}, core.E(core.KindInvalidInput, "message is required")
	}
	material, err := s.ensureMaterial(ctx, notebookID)
	if err != nil {
		return models.ConversationTurn{}, err
	}
	history, err := s.notebooks.ConversationHistory(notebookID)
	if err != nil {
		return models.ConversationTurn{}, err
	}

	var b strings.Builder
	for _, t := range history {
		fmt.Fprintf(&b, "Turn %d - Student: %s\nTutor: %s\n", t.Turn, t.StudentMessage, t.TeacherResponse)
	}
	task := fmt.Sprintf("Conversation so far:\n%s\nStudent: %s\nTutor:", b.String(), message)

	raw, err := s.llm.GenerateContent(ctx, buildPrompt(dialogueSystemPrompt, material, task))
	if err != nil {
		return models.ConversationTurn{}, err
	}
	result := EnforceGrounding(raw, material, ModeDialogue)

	turn := models.ConversationTurn{
		StudentMessage:  message,
		TeacherResponse: result.Answer,
		IsGrounded:      result.IsGrounded,
		Sources:         material.SourceNames(),
		Timestamp:       time.Now(),
	}
	return s.notebooks.AppendTurn(notebookID, turn)
}

// SummaryResult carries the slide summary plus its post-processing verdicts.
type SummaryResult struct {
	Summary     models.Summary
	IsGrounded  bool
	Sources     []string
	SlideCount  int
	ParseFailed bool
	RawText     string
}

// Summarize requests the strict-JSON slide summary. A malformed reply is
// retried once with a hardened instruction; a second failure degrades to an
// error-shaped summary carrying the raw text instead of propagating.
func (s *StudyService) Summarize(ctx context.Context, notebookID string) (SummaryResult, error) {
	material, err := s.ensureMaterial(ctx, notebookID)
	if err != nil {
		return SummaryResult{}, err
	}

	raw, err := s.llm.GenerateContent(ctx, buildPrompt(summarySystemPrompt, material, summaryInstruction))
	if err != nil {
		return SummaryResult{}, err
	}

	summary, ok := parseSummary(raw)
	if !ok {
		s.log.Warn("summary was not valid JSON, retrying", zap.String("notebook", notebookID))
		retryTask := summaryInstruction + "\n" + jsonOnlyRetry
		if raw2, err2 := s.llm.GenerateContent(ctx, buildPrompt(summarySystemPrompt, material, retryTask)); err2 == nil {
			raw = raw2
			summary, ok = parseSummary(raw)
		}
	}

	result := SummaryResult{Sources: material.SourceNames()}
	if !ok {
		result.Summary = models.Summary{
			Overview: "Summary generation failed: the model did not return valid JSON.",
			Concepts: []string{},
			ExamTips: []string{},
		}
		result.ParseFailed = true
		result.RawText = raw
		return result, nil
	}

	result.Summary = summary
	result.IsGrounded = CitesMaterial(raw, material.SourceNames())
	// One slide per concept plus the overview and exam-tips slides.
	result.SlideCount = len(summary.Concepts) + 2
	return result, nil
}

func parseSummary(raw string) (models.Summary, bool) {
	payload, ok := extractJSONObject(raw)
	if !ok {
		return models.Summary{}, false
	}
	var summary models.Summary
	if err := json.Unmarshal([]byte(payload), &summary); err != nil {
		return models.Summary{}, false
	}
	if summary.Overview == "" && len(summary.Concepts) == 0 {
		return models.Summary{}, false
	}
	return summary, true
}

const (
	maxSuggestedQuestions = 7
	minQuestionLength     = 10
	minVerifiedQuestions  = 4
)

// SuggestQuestions returns the cached question list unless forced or empty.
// Fresh candidates are parsed defensively, then each is verified by
// silently re-asking it and keeping only questions whose answer comes back
// grounded; if fewer than 4 survive, the unverified candidates are kept.
func (s *StudyService) SuggestQuestions(ctx context.Context, notebookID string, force bool) ([]string, error) {
	if !force {
		cached, err := s.notebooks.SuggestedQuestions(notebookID)
		if err != nil {
			return nil, err
		}
		if len(cached) > 0 {
			return cached, nil
		}
	}

	material, err := s.ensureMaterial(ctx, notebookID)
	if err != nil {
		return nil, err
	}

	raw, err := s.llm.GenerateContent(ctx, buildPrompt(qaSystemPrompt, material, suggestInstruction))
	if err != nil {
		return nil, err
	}

	candidates, ok := parseQuestionList(raw)
	if !ok || len(candidates) == 0 {
		return nil, core.E(core.KindParseFailure, "model did not return a usable question list")
	}

	verified := make([]string, 0, len(candidates))
	for _, q := range candidates {
		result, err := s.answer(ctx, material, q)
		if err != nil {
			s.log.Warn("question verification aborted", zap.Error(err))
			verified = nil
			break
		}
		if result.IsGrounded {
			verified = append(verified, q)
		}
	}

	questions := candidates
	if len(verified) >= minVerifiedQuestions {
		questions = verified
	}
	if err := s.notebooks.SetSuggestedQuestions(notebookID, questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func parseQuestionList(raw string) ([]string, bool) {
	payload, ok := extractJSONArray(raw)
	if !ok {
		return nil, false
	}
	var items []any
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, false
	}
	questions := make([]string, 0, len(items))
	for _, item := range items {
		q, ok := item.(string)
		if !ok {
			continue
		}
		q = strings.TrimSpace(q)
		if len(q) < minQuestionLength {
			continue
		}
		questions = append(questions, q)
		if len(questions) == maxSuggestedQuestions {
			break
		}
	}
	return questions, true
}
