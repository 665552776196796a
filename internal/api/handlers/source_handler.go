package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/danielokon-py/Tutora/internal/config"
	"github.com/danielokon-py/Tutora/internal/core"
	"github.com/danielokon-py/Tutora/internal/core/ingestion_engine"
	"github.com/danielokon-py/Tutora/internal/models"
	"github.com/danielokon-py/Tutora/internal/services"
)

type SourceHandler struct {
	notebooks *services.NotebookService
	study     *services.StudyService
	ingestor  ingestion_engine.Ingestor
	archive   core.ObjectClient // nil when archival is not configured
	cfg       *config.Config
	log       *zap.Logger
}

func NewSourceHandler(notebooks *services.NotebookService, study *services.StudyService, ingestor ingestion_engine.Ingestor, archive core.ObjectClient, cfg *config.Config, log *zap.Logger) *SourceHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SourceHandler{notebooks: notebooks, study: study, ingestor: ingestor, archive: archive, cfg: cfg, log: log}
}

// Ingest runs the pipeline for the scoped notebook.
func (h *SourceHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	notebookID, err := h.notebooks.Resolve(requestedNotebook(r))
	if err != nil {
		writeError(w, err)
		return
	}
	material, err := h.study.Ingest(r.Context(), notebookID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("ingested %d source(s)", material.Stats.SourceCount),
		"stats":   material.Stats,
		"sources": material.SourceNames(),
	})
}

// Upload accepts one multipart file (pdf/docx/txt/md/jpg/png/webp, max
// 10MB), resolves it into a source, and optionally archives the raw bytes.
func (h *SourceHandler) Upload(w http.ResponseWriter, r *http.Request) {
	notebookID, err := h.notebooks.Resolve(requestedNotebook(r))
	if err != nil {
		writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		writeError(w, core.E(core.KindInvalidInput, "file missing, too large, or invalid multipart payload"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, core.E(core.KindInvalidInput, "no file provided"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, core.E(core.KindInvalidInput, "could not read uploaded file"))
		return
	}

	src, err := h.ingestor.ProcessUpload(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		writeError(w, err)
		return
	}
	src, err = h.notebooks.AddSource(notebookID, src)
	if err != nil {
		writeError(w, err)
		return
	}

	h.archiveUpload(notebookID, src, data)

	stats, names, err := h.sourceStats(notebookID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("uploaded %q", src.Name),
		"source":  src,
		"stats":   stats,
		"sources": names,
	})
}

type addSourceRequest struct {
	Type    string `json:"type"`
	URL     string `json:"url"`
	Content string `json:"content"`
	Name    string `json:"name"`
}

// AddSource registers a drive/youtube/text source by value.
func (h *SourceHandler) AddSource(w http.ResponseWriter, r *http.Request) {
	notebookID, err := h.notebooks.Resolve(requestedNotebook(r))
	if err != nil {
		writeError(w, err)
		return
	}
	var req addSourceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Type == "" {
		writeError(w, core.E(core.KindInvalidInput, "source type is required"))
		return
	}

	src := models.Source{
		Type:    models.SourceType(req.Type),
		Name:    req.Name,
		URL:     req.URL,
		Content: req.Content,
	}
	if src.Name == "" {
		src.Name = defaultSourceName(src.Type)
	}

	src, err = h.notebooks.AddSource(notebookID, src)
	if err != nil {
		writeError(w, err)
		return
	}
	stats, names, err := h.sourceStats(notebookID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("added %q", src.Name),
		"source":  src,
		"stats":   stats,
		"sources": names,
	})
}

// ListSources returns the scoped notebook's sources in insertion order.
func (h *SourceHandler) ListSources(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"sources": sources,
		"count":   len(sources),
	})
}

// DeleteSource removes one source by id.
func (h *SourceHandler) DeleteSource(w http.ResponseWriter, r *http.Request) {
	notebookID, err := h.notebooks.Resolve(requestedNotebook(r))
	if err != nil {
		writeError(w, err)
		return
	}
	removed, err := h.notebooks.RemoveSource(notebookID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	h.deleteArchived(notebookID, removed)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ClearSources drops every source and the ingested material with them.
func (h *SourceHandler) ClearSources(w http.ResponseWriter, r *http.Request) {
	notebookID, err := h.notebooks.Resolve(requestedNotebook(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.notebooks.ClearSources(notebookID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *SourceHandler) sourceStats(notebookID string) (models.MaterialStats, []string, error) {
	sources, err := h.notebooks.Sources(notebookID)
	if err != nil {
		return models.MaterialStats{}, nil, err
	}
	infos := make([]models.SourceInfo, 0, len(sources))
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		infos = append(infos, models.SourceInfo{Name: s.Name, Type: s.Type})
		names = append(names, s.Name)
	}
	return models.MaterialStats{SourceCount: len(sources), Sources: infos, IsMultimodal: true}, names, nil
}

func defaultSourceName(t models.SourceType) string {
	switch t {
	case models.SourceYouTube:
		return "YouTube Video"
	case models.SourceDrive:
		return "Drive Document"
	case models.SourceText:
		return "Pasted Text"
	default:
		return "Uploaded File"
	}
}

func archiveKey(notebookID string, src models.Source) string {
	return fmt.Sprintf("notebooks/%s/sources/%s/%s", notebookID, src.ID, src.Name)
}

// archiveUpload copies the raw upload to object storage. Best-effort: the
// notebook state is volatile, so the archive is the only durable copy, but
// a storage hiccup must never fail the upload itself.
func (h *SourceHandler) archiveUpload(notebookID string, src models.Source, data []byte) {
	if h.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	contentType := src.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := h.archive.UploadFile(ctx, h.cfg.BucketName, archiveKey(notebookID, src), data, contentType); err != nil {
		h.log.Warn("archive upload failed", zap.String("source", src.Name), zap.Error(err))
	}
}

func (h *SourceHandler) deleteArchived(notebookID string, src models.Source) {
	if h.archive == nil || src.Type != models.SourceFile {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := h.archive.DeleteFile(ctx, h.cfg.BucketName, archiveKey(notebookID, src)); err != nil {
		h.log.Warn("archive delete failed", zap.String("source", src.Name), zap.Error(err))
	}
}
