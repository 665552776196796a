package services

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielokon-py/Tutora/internal/core"
	"github.com/danielokon-py/Tutora/internal/models"
)

// DefaultNotebookID names the notebook that always exists and can never be
// renamed or deleted.
const DefaultNotebookID = "default"

type notebookEntry struct {
	// ingestMu serializes ingestion per notebook so two concurrent requests
	// cannot race on replacing study material. Field reads and writes go
	// through the registry lock instead.
	ingestMu sync.Mutex
	nb       *models.Notebook
}

// NotebookService is the keyed registry of notebooks. All state lives in
// process memory. The "active" notebook is registry state used as a
// fallback when a request names no notebook explicitly.
type NotebookService struct {
	mu       sync.RWMutex
	entries  map[string]*notebookEntry
	order    []string
	activeID string
	log      *zap.Logger
}

func NewNotebookService(log *zap.Logger) *NotebookService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &NotebookService{
		entries:  make(map[string]*notebookEntry),
		activeID: DefaultNotebookID,
		log:      log,
	}
	s.entries[DefaultNotebookID] = &notebookEntry{nb: &models.Notebook{
		ID:        DefaultNotebookID,
		Name:      "Default",
		IsDefault: true,
		CreatedAt: time.Now(),
	}}
	s.order = append(s.order, DefaultNotebookID)
	return s
}

// Resolve maps a requested notebook id ("" means "whichever is active") to
// a concrete id, failing with NotFound for unknown ids.
func (s *NotebookService) Resolve(requested string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if requested == "" {
		return s.activeID, nil
	}
	if _, ok := s.entries[requested]; !ok {
		return "", core.E(core.KindNotFound, "notebook %q not found", requested)
	}
	return requested, nil
}

func (s *NotebookService) entry(id string) (*notebookEntry, error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, core.E(core.KindNotFound, "notebook %q not found", id)
	}
	return e, nil
}

// LockIngest acquires the per-notebook ingestion lock and returns the
// release func.
func (s *NotebookService) LockIngest(id string) (func(), error) {
	s.mu.RLock()
	e, err := s.entry(id)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	e.ingestMu.Lock()
	return e.ingestMu.Unlock, nil
}

// AddSource validates and appends a source, assigning id and timestamp.
func (s *NotebookService) AddSource(notebookID string, src models.Source) (models.Source, error) {
	if !src.Type.Valid() {
		return models.Source{}, core.E(core.KindInvalidInput, "invalid source type %q", src.Type)
	}
	switch src.Type {
	case models.SourceDrive, models.SourceYouTube:
		if strings.TrimSpace(src.URL) == "" {
			return models.Source{}, core.E(core.KindInvalidInput, "%s source requires a url", src.Type)
		}
	case models.SourceText, models.SourceFile:
		if strings.TrimSpace(src.Content) == "" && src.FileURI == "" {
			return models.Source{}, core.E(core.KindInvalidInput, "%s source requires content", src.Type)
		}
	}
	if strings.TrimSpace(src.Name) == "" {
		return models.Source{}, core.E(core.KindInvalidInput, "source requires a name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(notebookID)
	if err != nil {
		return models.Source{}, err
	}
	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	src.AddedAt = time.Now()
	e.nb.Sources = append(e.nb.Sources, src)
	s.log.Info("source added",
		zap.String("notebook", notebookID),
		zap.String("source", src.Name),
		zap.String("type", string(src.Type)))
	return src, nil
}

// RemoveSource deletes a source by id, returning the removed source so the
// caller can clean up any archived copy.
func (s *NotebookService) RemoveSource(notebookID, sourceID string) (models.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(notebookID)
	if err != nil {
		return models.Source{}, err
	}
	for i, src := range e.nb.Sources {
		if src.ID == sourceID {
			e.nb.Sources = append(e.nb.Sources[:i], e.nb.Sources[i+1:]...)
			return src, nil
		}
	}
	return models.Source{}, core.E(core.KindNotFound, "source %q not found", sourceID)
}

// Sources returns the notebook's sources in insertion order.
func (s *NotebookService) Sources(notebookID string) ([]models.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.entry(notebookID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Source, len(e.nb.Sources))
	copy(out, e.nb.Sources)
	return out, nil
}

// ClearSources drops all sources and invalidates the ingested material and
// the cached suggested questions that derived from it. It waits out any
// in-flight ingest first, so a pipeline that started before the clear cannot
// store its material afterwards. The ingest lock is acquired before the
// registry lock, same order as LockIngest callers.
func (s *NotebookService) ClearSources(notebookID string) error {
	s.mu.RLock()
	e, err := s.entry(notebookID)
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	e.ingestMu.Lock()
	defer e.ingestMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	e.nb.Sources = nil
	e.nb.StudyMaterial = nil
	e.nb.SuggestedQuestions = nil
	return nil
}

// ListNotebooks returns listing views in creation order.
func (s *NotebookService) ListNotebooks() []models.NotebookInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.NotebookInfo, 0, len(s.order))
	for _, id := range s.order {
		nb := s.entries[id].nb
		out = append(out, models.NotebookInfo{
			ID:          nb.ID,
			Name:        nb.Name,
			IsDefault:   nb.IsDefault,
			IsActive:    id == s.activeID,
			SourceCount: len(nb.Sources),
			HasMaterial: nb.StudyMaterial != nil,
		})
	}
	return out
}

func (s *NotebookService) CreateNotebook(name string) (models.NotebookInfo, error) {
	if strings.TrimSpace(name) == "" {
		return models.NotebookInfo{}, core.E(core.KindInvalidInput, "notebook name required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.entries[id] = &notebookEntry{nb: &models.Notebook{
		ID:        id,
		Name:      name,
		CreatedAt: time.Now(),
	}}
	s.order = append(s.order, id)
	return models.NotebookInfo{ID: id, Name: name}, nil
}

func (s *NotebookService) RenameNotebook(id, name string) error {
	if strings.TrimSpace(name) == "" {
		return core.E(core.KindInvalidInput, "notebook name required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	if e.nb.IsDefault {
		return core.E(core.KindPolicyViolation, "the default notebook cannot be renamed")
	}
	e.nb.Name = name
	return nil
}

// DeleteNotebook removes a notebook. Deleting the active one reverts the
// active pointer to the default notebook.
func (s *NotebookService) DeleteNotebook(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	if e.nb.IsDefault {
		return core.E(core.KindPolicyViolation, "the default notebook cannot be deleted")
	}
	delete(s.entries, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.activeID == id {
		s.activeID = DefaultNotebookID
	}
	return nil
}

func (s *NotebookService) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.entry(id); err != nil {
		return err
	}
	s.activeID = id
	return nil
}

func (s *NotebookService) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Material returns the notebook's current study material, nil if none.
// Callers treat the returned material as read-only.
func (s *NotebookService) Material(notebookID string) (*models.StudyMaterial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.entry(notebookID)
	if err != nil {
		return nil, err
	}
	return e.nb.StudyMaterial, nil
}

func (s *NotebookService) SetMaterial(notebookID string, m *models.StudyMaterial) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(notebookID)
	if err != nil {
		return err
	}
	e.nb.StudyMaterial = m
	return nil
}

// Signature fingerprints the notebook's current source list.
func (s *NotebookService) Signature(notebookID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.entry(notebookID)
	if err != nil {
		return "", err
	}
	return models.SourceSignature(e.nb.Sources), nil
}

func (s *NotebookService) AppendQA(notebookID string, entry models.QAEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(notebookID)
	if err != nil {
		return err
	}
	e.nb.QAHistory = append(e.nb.QAHistory, entry)
	return nil
}

// AppendTurn appends a dialogue turn, assigning the running turn number.
func (s *NotebookService) AppendTurn(notebookID string, turn models.ConversationTurn) (models.ConversationTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(notebookID)
	if err != nil {
		return models.ConversationTurn{}, err
	}
	turn.Turn = len(e.nb.ConversationHistory) + 1
	e.nb.ConversationHistory = append(e.nb.ConversationHistory, turn)
	return turn, nil
}

func (s *NotebookService) ConversationHistory(notebookID string) ([]models.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.entry(notebookID)
	if err != nil {
		return nil, err
	}
	out := make([]models.ConversationTurn, len(e.nb.ConversationHistory))
	copy(out, e.nb.ConversationHistory)
	return out, nil
}

func (s *NotebookService) QAHistory(notebookID string) ([]models.QAEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.entry(notebookID)
	if err != nil {
		return nil, err
	}
	out := make([]models.QAEntry, len(e.nb.QAHistory))
	copy(out, e.nb.QAHistory)
	return out, nil
}

func (s *NotebookService) ClearHistories(notebookID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(notebookID)
	if err != nil {
		return err
	}
	e.nb.ConversationHistory = nil
	e.nb.QAHistory = nil
	return nil
}

func (s *NotebookService) SuggestedQuestions(notebookID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.entry(notebookID)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(e.nb.SuggestedQuestions))
	copy(out, e.nb.SuggestedQuestions)
	return out, nil
}

func (s *NotebookService) SetSuggestedQuestions(notebookID string, questions []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(notebookID)
	if err != nil {
		return err
	}
	e.nb.SuggestedQuestions = questions
	return nil
}
