package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/danielokon-py/Tutora/internal/services"
)

type NotebookHandler struct {
	notebooks *services.NotebookService
}

func NewNotebookHandler(notebooks *services.NotebookService) *NotebookHandler {
	return &NotebookHandler{notebooks: notebooks}
}

func (h *NotebookHandler) List(w http.ResponseWriter, r *http.Request) {
	infos := h.notebooks.ListNotebooks()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"notebooks": infos,
		"count":     len(infos),
	})
}

type notebookNameRequest struct {
	Name string `json:"name"`
}

func (h *NotebookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req notebookNameRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	info, err := h.notebooks.CreateNotebook(req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "notebook": info})
}

func (h *NotebookHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req notebookNameRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.notebooks.RenameNotebook(chi.URLParam(r, "id"), req.Name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *NotebookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.notebooks.DeleteNotebook(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *NotebookHandler) Activate(w http.ResponseWriter, r *http.Request) {
	if err := h.notebooks.SetActive(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
