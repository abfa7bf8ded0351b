package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"clouddrive/internal/service"
)

type FolderHandler struct {
	folderService *service.FolderService
}

type createFolderRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

func NewFolderHandler(folderService *service.FolderService) *FolderHandler {
	return &FolderHandler{folderService: folderService}
}

func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	folder, err := h.folderService.CreateFolder(r.Context(), principal(r).AccountID, req.Name, req.ParentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

// GetFolderContent отдает содержимое папки {id} или корня, если id не задан
func (h *FolderHandler) GetFolderContent(w http.ResponseWriter, r *http.Request) {
	folderID, err := optionalID(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "Invalid folder ID")
		return
	}

	content, err := h.folderService.ListChildren(r.Context(), principal(r).AccountID, folderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func (h *FolderHandler) GetBreadcrumbs(w http.ResponseWriter, r *http.Request) {
	folderID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	crumbs, err := h.folderService.Breadcrumbs(r.Context(), principal(r).AccountID, folderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, crumbs)
}

func (h *FolderHandler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	folderID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req renameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	folder, err := h.folderService.RenameFolder(r.Context(), principal(r).AccountID, folderID, req.NewName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

// MoveFolder переносит папку; folder_id = null означает корень
func (h *FolderHandler) MoveFolder(w http.ResponseWriter, r *http.Request) {
	folderID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req moveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.folderService.MoveFolder(r.Context(), principal(r).AccountID, folderID, req.FolderID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	folderID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	result, err := h.folderService.DeleteFolder(r.Context(), principal(r).AccountID, folderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *FolderHandler) Search(w http.ResponseWriter, r *http.Request) {
	result, err := h.folderService.Search(r.Context(), principal(r).AccountID, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
