package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielokon-py/Tutora/internal/core"
	"github.com/danielokon-py/Tutora/internal/core/ingestion_engine"
	"github.com/danielokon-py/Tutora/internal/models"
)

// stubLLM pops queued responses in order, repeating the last one when the
// queue runs dry. It records every prompt it receives.
type stubLLM struct {
	responses []string
	calls     int
	prompts   [][]models.PromptPart
}

func (s *stubLLM) GenerateContent(_ context.Context, parts []models.PromptPart) (string, error) {
	s.calls++
	s.prompts = append(s.prompts, parts)
	if len(s.responses) == 0 {
		return "", core.E(core.KindUpstreamFailure, "no stubbed response")
	}
	resp := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return resp, nil
}

// gateIngestor parks inside Ingest until released, so tests can interleave
// notebook mutations with an in-flight ingestion.
type gateIngestor struct {
	entered chan struct{}
	release chan struct{}
}

func newGateIngestor() *gateIngestor {
	return &gateIngestor{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gateIngestor) Ingest(_ context.Context, sources []models.Source, _ bool) (*models.StudyMaterial, error) {
	close(g.entered)
	<-g.release
	m := &models.StudyMaterial{
		Signature:  models.SourceSignature(sources),
		IngestedAt: time.Now(),
	}
	for _, src := range sources {
		m.Sources = append(m.Sources, models.SourceInfo{Name: src.Name, Type: src.Type})
		m.ContextParts = append(m.ContextParts, models.TextPart(src.Content))
	}
	m.Stats = models.MaterialStats{SourceCount: len(m.Sources), Sources: m.Sources, IsMultimodal: true}
	return m, nil
}

func (g *gateIngestor) ProcessUpload(context.Context, string, string, []byte) (models.Source, error) {
	return models.Source{}, core.E(core.KindUnsupportedType, "not supported here")
}

func newStudyFixture(t *testing.T, llm *stubLLM) (*StudyService, *NotebookService) {
	t.Helper()
	notebooks := NewNotebookService(nil)
	pipeline := ingestion_engine.NewPipeline(nil, nil, nil, nil, nil)
	return NewStudyService(notebooks, pipeline, llm, nil), notebooks
}

func addEconNote(t *testing.T, notebooks *NotebookService) {
	t.Helper()
	_, err := notebooks.AddSource(DefaultNotebookID, models.Source{
		Type:    models.SourceText,
		Name:    "Econ Note",
		Content: "The law of supply: quantity supplied rises when price rises.",
	})
	require.NoError(t, err)
}

func TestStudyServiceAskGroundedAnswer(t *testing.T) {
	llm := &stubLLM{responses: []string{
		"Quantity supplied rises when price rises. (Source: Econ Note)",
	}}
	study, notebooks := newStudyFixture(t, llm)
	addEconNote(t, notebooks)

	entry, err := study.Ask(context.Background(), DefaultNotebookID, "What is the law of supply?")
	require.NoError(t, err)

	assert.True(t, entry.IsGrounded)
	assert.Equal(t, "Quantity supplied rises when price rises. (Source: Econ Note)", entry.Answer)
	assert.Equal(t, []string{"Econ Note"}, entry.Sources)

	history, err := notebooks.QAHistory(DefaultNotebookID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "What is the law of supply?", history[0].Question)
}

func TestStudyServiceAskUncitedAnswerBecomesRefusal(t *testing.T) {
	llm := &stubLLM{responses: []string{
		"In general economic theory, supply curves slope upward for many structural reasons.",
	}}
	study, notebooks := newStudyFixture(t, llm)
	addEconNote(t, notebooks)

	entry, err := study.Ask(context.Background(), DefaultNotebookID, "Why do supply curves slope upward?")
	require.NoError(t, err)

	assert.False(t, entry.IsGrounded)
	assert.Equal(t, Refusal, entry.Answer)
}

func TestStudyServiceAskWithoutSources(t *testing.T) {
	study, notebooks := newStudyFixture(t, &stubLLM{})
	info, err := notebooks.CreateNotebook("Empty")
	require.NoError(t, err)

	_, err = study.Ask(context.Background(), info.ID, "Anything?")
	assert.Equal(t, core.KindMaterialNotIngested, core.KindOf(err))
}

func TestStudyServiceAskBlankQuestion(t *testing.T) {
	study, _ := newStudyFixture(t, &stubLLM{})

	_, err := study.Ask(context.Background(), DefaultNotebookID, "   ")
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))
}

func TestStudyServiceIngestReusedUntilSourcesChange(t *testing.T) {
	llm := &stubLLM{responses: []string{"See the Econ Note for details."}}
	study, notebooks := newStudyFixture(t, llm)
	addEconNote(t, notebooks)

	first, err := study.Ingest(context.Background(), DefaultNotebookID)
	require.NoError(t, err)

	// Asking must not re-ingest: the stored material still matches the
	// source list's signature.
	_, err = study.Ask(context.Background(), DefaultNotebookID, "What does the note say?")
	require.NoError(t, err)
	current, err := notebooks.Material(DefaultNotebookID)
	require.NoError(t, err)
	assert.Same(t, first, current)

	// A new source invalidates the signature and forces fresh material.
	_, err = notebooks.AddSource(DefaultNotebookID, models.Source{
		Type:    models.SourceText,
		Name:    "Second Note",
		Content: "Demand falls when price rises.",
	})
	require.NoError(t, err)
	_, err = study.Ask(context.Background(), DefaultNotebookID, "And demand?")
	require.NoError(t, err)
	current, err = notebooks.Material(DefaultNotebookID)
	require.NoError(t, err)
	assert.NotSame(t, first, current)
	assert.Equal(t, 2, current.Stats.SourceCount)
}

func TestStudyServiceClearSourcesWaitsForInFlightIngest(t *testing.T) {
	notebooks := NewNotebookService(nil)
	gate := newGateIngestor()
	study := NewStudyService(notebooks, gate, &stubLLM{}, nil)
	addEconNote(t, notebooks)

	done := make(chan error, 1)
	go func() {
		_, err := study.Ingest(context.Background(), DefaultNotebookID)
		done <- err
	}()
	<-gate.entered

	cleared := make(chan error, 1)
	go func() { cleared <- notebooks.ClearSources(DefaultNotebookID) }()
	// Let the clear park on the ingest lock before the pipeline finishes.
	time.Sleep(10 * time.Millisecond)
	close(gate.release)

	require.NoError(t, <-done)
	require.NoError(t, <-cleared)

	// The clear ran after the ingest stored its material, so the notebook
	// must end up with neither sources nor material.
	material, err := notebooks.Material(DefaultNotebookID)
	require.NoError(t, err)
	assert.Nil(t, material)
	sources, err := notebooks.Sources(DefaultNotebookID)
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestStudyServiceIngestDiscardsResultWhenSourcesChangeMidFlight(t *testing.T) {
	notebooks := NewNotebookService(nil)
	gate := newGateIngestor()
	study := NewStudyService(notebooks, gate, &stubLLM{}, nil)
	addEconNote(t, notebooks)

	done := make(chan error, 1)
	go func() {
		_, err := study.Ingest(context.Background(), DefaultNotebookID)
		done <- err
	}()
	<-gate.entered

	// AddSource does not take the ingest lock, so the source list changes
	// under the running pipeline.
	_, err := notebooks.AddSource(DefaultNotebookID, models.Source{
		Type:    models.SourceText,
		Name:    "Second Note",
		Content: "Demand falls when price rises.",
	})
	require.NoError(t, err)
	close(gate.release)
	require.NoError(t, <-done)

	// The single-source material no longer matches the notebook's
	// signature and must not have been stored.
	material, err := notebooks.Material(DefaultNotebookID)
	require.NoError(t, err)
	assert.Nil(t, material)
}

func TestStudyServiceDialogueGreetingAndTurnNumbers(t *testing.T) {
	llm := &stubLLM{responses: []string{
		"Hello! Ready to study?",
		"The Econ Note says quantity supplied rises when price rises.",
	}}
	study, notebooks := newStudyFixture(t, llm)
	addEconNote(t, notebooks)

	turn, err := study.Dialogue(context.Background(), DefaultNotebookID, "hi there")
	require.NoError(t, err)
	assert.Equal(t, 1, turn.Turn)
	assert.Equal(t, "Hello! Ready to study?", turn.TeacherResponse)
	assert.True(t, turn.IsGrounded)

	turn, err = study.Dialogue(context.Background(), DefaultNotebookID, "what is the law of supply?")
	require.NoError(t, err)
	assert.Equal(t, 2, turn.Turn)
	assert.True(t, turn.IsGrounded)

	history, err := notebooks.ConversationHistory(DefaultNotebookID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestStudyServiceSummarizeStripsCodeFences(t *testing.T) {
	llm := &stubLLM{responses: []string{
		"```json\n{\"overview\":\"Covers the law of supply from the Econ Note.\",\"concepts\":[\"Law of supply\",\"Price signals\"],\"examTips\":[\"Define the law precisely\"]}\n```",
	}}
	study, notebooks := newStudyFixture(t, llm)
	addEconNote(t, notebooks)

	result, err := study.Summarize(context.Background(), DefaultNotebookID)
	require.NoError(t, err)

	assert.False(t, result.ParseFailed)
	assert.Equal(t, "Covers the law of supply from the Econ Note.", result.Summary.Overview)
	assert.Len(t, result.Summary.Concepts, 2)
	assert.Equal(t, 4, result.SlideCount)
	assert.True(t, result.IsGrounded)

	// The summary request runs under its own system prompt, not the Q&A
	// one, so no refusal instruction leaks into a JSON-only request.
	require.NotEmpty(t, llm.prompts)
	assert.NotContains(t, llm.prompts[0][0].Text, Refusal)
}

func TestStudyServiceSummarizeRetriesOnce(t *testing.T) {
	llm := &stubLLM{responses: []string{
		"Sure! Here is your summary in plain prose instead of JSON.",
		"{\"overview\":\"Law of supply, per the Econ Note.\",\"concepts\":[\"Law of supply\"],\"examTips\":[]}",
	}}
	study, notebooks := newStudyFixture(t, llm)
	addEconNote(t, notebooks)

	result, err := study.Summarize(context.Background(), DefaultNotebookID)
	require.NoError(t, err)

	assert.False(t, result.ParseFailed)
	assert.Equal(t, "Law of supply, per the Econ Note.", result.Summary.Overview)
	assert.Equal(t, 2, llm.calls)
}

func TestStudyServiceSummarizeDoubleFailure(t *testing.T) {
	llm := &stubLLM{responses: []string{
		"Not JSON the first time.",
		"Still not JSON the second time.",
	}}
	study, notebooks := newStudyFixture(t, llm)
	addEconNote(t, notebooks)

	result, err := study.Summarize(context.Background(), DefaultNotebookID)
	require.NoError(t, err)

	assert.True(t, result.ParseFailed)
	assert.Equal(t, "Still not JSON the second time.", result.RawText)
	assert.Contains(t, result.Summary.Overview, "Summary generation failed")
	assert.False(t, result.IsGrounded)
}

func TestStudyServiceSuggestQuestionsVerifiesAndCaches(t *testing.T) {
	questionsJSON := `["What is the law of supply stated in the note?",` +
		`"How does quantity supplied respond to price?",` +
		`"What does the Econ Note cover overall?",` +
		`"Why might price changes shift supplied quantity?",` +
		`"What relationship does the note describe?"]`
	grounded := "Per the Econ Note, quantity supplied rises with price."
	llm := &stubLLM{responses: []string{questionsJSON, grounded}}
	study, notebooks := newStudyFixture(t, llm)
	addEconNote(t, notebooks)

	questions, err := study.SuggestQuestions(context.Background(), DefaultNotebookID, false)
	require.NoError(t, err)
	require.Len(t, questions, 5)
	// 1 generation call + 5 verification calls.
	assert.Equal(t, 6, llm.calls)

	// Second call hits the cache without touching the model.
	again, err := study.SuggestQuestions(context.Background(), DefaultNotebookID, false)
	require.NoError(t, err)
	assert.Equal(t, questions, again)
	assert.Equal(t, 6, llm.calls)
}

func TestStudyServiceSuggestQuestionsKeepsCandidatesWhenFewVerify(t *testing.T) {
	questionsJSON := `["What is the law of supply stated in the note?",` +
		`"How does quantity supplied respond to price?",` +
		`"What does the Econ Note cover overall?",` +
		`"Why might price changes shift supplied quantity?"]`
	// Verification answers never cite the material, so nothing verifies
	// and the raw candidate list survives.
	llm := &stubLLM{responses: []string{questionsJSON, "I am not sure about that one at all."}}
	study, notebooks := newStudyFixture(t, llm)
	addEconNote(t, notebooks)

	questions, err := study.SuggestQuestions(context.Background(), DefaultNotebookID, false)
	require.NoError(t, err)
	assert.Len(t, questions, 4)
	assert.Equal(t, "What is the law of supply stated in the note?", questions[0])
}

func TestStudyServiceSuggestQuestionsParseFailure(t *testing.T) {
	llm := &stubLLM{responses: []string{"Here are some questions, in prose."}}
	study, notebooks := newStudyFixture(t, llm)
	addEconNote(t, notebooks)

	_, err := study.SuggestQuestions(context.Background(), DefaultNotebookID, false)
	assert.Equal(t, core.KindParseFailure, core.KindOf(err))
}
