package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SourceType discriminates the kinds of study material a notebook can hold.
type SourceType string

const (
	SourceFile    SourceType = "file"
	SourceDrive   SourceType = "drive"
	SourceYouTube SourceType = "youtube"
	SourceText    SourceType = "text"
)

// Valid reports whether t is one of the known source kinds.
func (t SourceType) Valid() bool {
	switch t {
	case SourceFile, SourceDrive, SourceYouTube, SourceText:
		return true
	}
	return false
}

// Source represents one user-contributed input to a notebook.
// Drive and YouTube sources carry a URL; text and file sources carry inline
// content unless a remote file handle (FileURI) substitutes for it.
type Source struct {
	ID       string     `json:"id"`
	Type     SourceType `json:"type"`
	Name     string     `json:"name"`
	URL      string     `json:"url,omitempty"`
	Content  string     `json:"content,omitempty"`
	FileURI  string     `json:"fileUri,omitempty"`
	MIMEType string     `json:"mimeType,omitempty"`
	Size     int64      `json:"size,omitempty"`
	AddedAt  time.Time  `json:"addedAt"`
}

// PromptPart is one unit of prompt material sent to the LLM: either inline
// text or a reference to a file in the vendor's remote store.
type PromptPart struct {
	Text     string `json:"text,omitempty"`
	FileURI  string `json:"fileUri,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
}

// TextPart wraps inline text as a prompt part.
func TextPart(s string) PromptPart { return PromptPart{Text: s} }

// FilePart wraps a remote file handle as a prompt part.
func FilePart(uri, mimeType string) PromptPart {
	return PromptPart{FileURI: uri, MIMEType: mimeType}
}

// IsFile reports whether the part references a remote file.
func (p PromptPart) IsFile() bool { return p.FileURI != "" }

// RemoteFile is an opaque handle returned by the vendor's file-upload API.
type RemoteFile struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType"`
	Name     string `json:"name,omitempty"`
}

// SourceInfo is the per-source metadata recorded on ingested material.
type SourceInfo struct {
	Name string     `json:"name"`
	Type SourceType `json:"type"`
}

// IngestionWarning records a source that could not be processed. The batch
// keeps going; the warning is also rendered as an inline notice fragment.
type IngestionWarning struct {
	SourceID   string `json:"sourceId"`
	SourceName string `json:"sourceName"`
	Message    string `json:"message"`
}

// MaterialStats summarizes one ingestion run.
type MaterialStats struct {
	SourceCount  int          `json:"sourceCount"`
	Sources      []SourceInfo `json:"sources"`
	IsMultimodal bool         `json:"isMultimodal"`
}

// StudyMaterial is the LLM-ready representation of a notebook's sources at a
// point in time. Produced only by the ingestion pipeline and replaced
// wholesale on re-ingestion.
type StudyMaterial struct {
	ContextParts []PromptPart       `json:"contextParts"`
	Sources      []SourceInfo       `json:"sources"`
	Stats        MaterialStats      `json:"stats"`
	Warnings     []IngestionWarning `json:"warnings,omitempty"`
	Signature    string             `json:"-"`
	IngestedAt   time.Time          `json:"ingestedAt"`
}

// SourceNames returns the display names of the included sources, in order.
func (m *StudyMaterial) SourceNames() []string {
	names := make([]string, 0, len(m.Sources))
	for _, s := range m.Sources {
		names = append(names, s.Name)
	}
	return names
}

// SourceSignature derives a deterministic fingerprint of a source list, used
// to detect staleness between a notebook's sources and its ingested
// material. Tuples are sorted before joining so ordering changes alone do
// not force a re-ingest.
func SourceSignature(sources []Source) string {
	tuples := make([]string, 0, len(sources))
	for _, s := range sources {
		tuples = append(tuples, fmt.Sprintf("%s:%s:%s:%s", s.Type, s.Name, s.URL, s.FileURI))
	}
	sort.Strings(tuples)
	return strings.Join(tuples, "|")
}

// ConversationTurn is one append-only dialogue exchange.
type ConversationTurn struct {
	Turn            int       `json:"turn"`
	StudentMessage  string    `json:"studentMessage"`
	TeacherResponse string    `json:"teacherResponse"`
	IsGrounded      bool      `json:"isGrounded"`
	Sources         []string  `json:"sources"`
	Timestamp       time.Time `json:"timestamp"`
}

// QAEntry is one append-only question/answer record.
type QAEntry struct {
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	IsGrounded bool      `json:"isGrounded"`
	Sources    []string  `json:"sources"`
	Timestamp  time.Time `json:"timestamp"`
}

// Summary is the slide-summary payload requested from the model.
type Summary struct {
	Overview string   `json:"overview"`
	Concepts []string `json:"concepts"`
	ExamTips []string `json:"examTips"`
}

// Notebook is the isolation boundary for a user session. The default
// notebook always exists and can never be renamed or deleted.
type Notebook struct {
	ID                  string             `json:"id"`
	Name                string             `json:"name"`
	IsDefault           bool               `json:"isDefault"`
	Sources             []Source           `json:"sources"`
	StudyMaterial       *StudyMaterial     `json:"studyMaterial,omitempty"`
	ConversationHistory []ConversationTurn `json:"conversationHistory"`
	QAHistory           []QAEntry          `json:"qaHistory"`
	SuggestedQuestions  []string           `json:"suggestedQuestions"`
	CreatedAt           time.Time          `json:"createdAt"`
}

// NotebookInfo is the listing view of a notebook.
type NotebookInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsDefault   bool   `json:"isDefault"`
	IsActive    bool   `json:"isActive"`
	SourceCount int    `json:"sourceCount"`
	HasMaterial bool   `json:"hasMaterial"`
}
