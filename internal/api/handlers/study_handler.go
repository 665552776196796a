package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/danielokon-py/Tutora/internal/core"
	"github.com/danielokon-py/Tutora/internal/services"
)

// Prober is the minimal connectivity check the /test-gemini endpoint needs.
type Prober interface {
	Ping(ctx context.Context) error
}

// fallbackQuestions is the canned list served when suggestion generation is
// rate-limited or has no material to draw from.
var fallbackQuestions = []string{
	"What are the main ideas covered in the study material?",
	"Which concepts from the material are most likely to appear on an exam?",
	"Can you explain the most difficult concept in the material?",
	"How do the different sources in the material relate to each other?",
	"What examples does the material give for its key concepts?",
}

type StudyHandler struct {
	notebooks *services.NotebookService
	study     *services.StudyService
	prober    Prober
	started   time.Time
	log       *zap.Logger
}

func NewStudyHandler(notebooks *services.NotebookService, study *services.StudyService, prober Prober, log *zap.Logger) *StudyHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &StudyHandler{notebooks: notebooks, study: study, prober: prober, started: time.Now(), log: log}
}

type askRequest struct {
	Question string `json:"question"`
}

// Ask answers one written question in strict grounding mode.
func (h *StudyHandler) Ask(w http.ResponseWriter, r *http.Request) {
	notebookID, err := h.notebooks.Resolve(requestedNotebook(r))
	if err != nil {
		writeError(w, err)
		return
	}
	var req askRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Question == "" {
		writeError(w, core.E(core.KindInvalidInput, "question is required"))
		return
	}
	entry, err := h.study.Ask(r.Context(), notebookID, req.Question)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"question":   entry.Question,
		"answer":     entry.Answer,
		"isGrounded": entry.IsGrounded,
		"sources":    entry.Sources,
		"timestamp":  entry.Timestamp,
	})
}

type dialogueRequest struct {
	Message string `json:"message"`
}

// Dialogue runs one voice-conversation turn.
func (h *StudyHandler) Dialogue(w http.ResponseWriter, r *http.Request) {
	notebookID, err := h.notebooks.Resolve(requestedNotebook(r))
	if err != nil {
		writeError(w, err)
		return
	}
	var req dialogueRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Message == "" {
		writeError(w, core.E(core.KindInvalidInput, "message is required"))
		return
	}
	turn, err := h.study.Dialogue(r.Context(), notebookID, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"studentMessage":     turn.StudentMessage,
		"teacherResponse":    turn.TeacherResponse,
		"isGrounded":         turn.IsGrounded,
		"sources":            turn.Sources,
		"conversationLength": turn.Turn,
		"timestamp":          turn.Timestamp,
	})
}

// Summary produces the slide summary.
func (h *StudyHandler) Summary(w http.ResponseWriter, r *http.Request) {
	notebookID, err := h.notebooks.Resolve(requestedNotebook(r))
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.study.Summarize(r.Context(), notebookID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := map[string]any{
		"summary":    result.Summary,
		"isGrounded": result.IsGrounded,
		"sources":    result.Sources,
		"slideCount": result.SlideCount,
		"timestamp":  time.Now(),
	}
	if result.ParseFailed {
		resp["parseFailed"] = true
		resp["rawText"] = result.RawText
	}
	writeJSON(w, http.StatusOK, resp)
}

type suggestRequest struct {
	Force bool `json:"force"`
}

// SuggestQuestions serves cached or freshly generated study questions.
// Rate-limit and quota failures degrade to the canned fallback list instead
// of failing the request.
func (h *StudyHandler) SuggestQuestions(w http.ResponseWriter, r *http.Request) {
	notebookID, err := h.notebooks.Resolve(requestedNotebook(r))
	if err != nil {
		writeError(w, err)
		return
	}
	// Body is optional; an absent or malformed one means force=false.
	var req suggestRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	questions, err := h.study.SuggestQuestions(r.Context(), notebookID, req.Force)
	if err != nil {
		if core.IsRateLimited(err) {
			h.log.Warn("suggestion generation rate-limited, serving fallback", zap.Error(err))
			writeJSON(w, http.StatusOK, map[string]any{
				"success":   true,
				"questions": fallbackQuestions,
				"fallback":  true,
			})
			return
		}
		switch core.KindOf(err) {
		case core.KindMaterialNotIngested, core.KindNoSources, core.KindParseFailure:
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success":   false,
				"message":   err.Error(),
				"questions": fallbackQuestions,
			})
		default:
			writeError(w, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "questions": questions})
}

// ClearHistory drops both conversation and Q&A logs.
func (h *StudyHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	notebookID, err := h.notebooks.Resolve(requestedNotebook(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.notebooks.ClearHistories(notebookID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "history cleared"})
}

// History returns the dialogue history for the scoped notebook.
func (h *StudyHandler) History(w http.ResponseWriter, r *http.Request) {
	notebookID, err := h.notebooks.Resolve(requestedNotebook(r))
	if err != nil {
		writeError(w, err)
		return
	}
	history, err := h.notebooks.ConversationHistory(notebookID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"history": history,
		"count":   len(history),
	})
}

// Stats reports notebook, material, and history counters.
func (h *StudyHandler) Stats(w http.ResponseWriter, r *http.Request) {
	notebookID, err := h.notebooks.Resolve(requestedNotebook(r))
	if err != nil {
		writeError(w, err)
		return
	}
	sources, err := h.notebooks.Sources(notebookID)
	if err != nil {
		writeError(w, err)
		return
	}
	material, err := h.notebooks.Material(notebookID)
	if err != nil {
		writeError(w, err)
		return
	}
	qa, _ := h.notebooks.QAHistory(notebookID)
	conversation, _ := h.notebooks.ConversationHistory(notebookID)

	resp := map[string]any{
		"success":           true,
		"notebook":          notebookID,
		"notebookCount":     len(h.notebooks.ListNotebooks()),
		"sourceCount":       len(sources),
		"hasMaterial":       material != nil,
		"qaCount":           len(qa),
		"conversationCount": len(conversation),
	}
	if material != nil {
		resp["materialStats"] = material.Stats
		resp["ingestedAt"] = material.IngestedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health is the liveness probe.
func (h *StudyHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"status":         "ok",
		"uptime":         time.Since(h.started).String(),
		"activeNotebook": h.notebooks.ActiveID(),
		"notebookCount":  len(h.notebooks.ListNotebooks()),
		"timestamp":      time.Now(),
	})
}

// TestGemini probes upstream connectivity with a one-word generation.
func (h *StudyHandler) TestGemini(w http.ResponseWriter, r *http.Request) {
	if err := h.prober.Ping(r.Context()); err != nil {
		writeError(w, core.WrapErr(core.KindUpstreamFailure, err, "gemini connectivity check failed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "gemini reachable"})
}
