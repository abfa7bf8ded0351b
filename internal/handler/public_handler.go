package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"clouddrive/internal/service"
)

// PublicHandler обслуживает публичные ссылки без аутентификации
type PublicHandler struct {
	fileService *service.FileService
}

func NewPublicHandler(fileService *service.FileService) *PublicHandler {
	return &PublicHandler{fileService: fileService}
}

func (h *PublicHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	file, err := h.fileService.ResolvePublic(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

func (h *PublicHandler) View(w http.ResponseWriter, r *http.Request) {
	h.open(w, r, "inline")
}

func (h *PublicHandler) Download(w http.ResponseWriter, r *http.Request) {
	h.open(w, r, "attachment")
}

func (h *PublicHandler) open(w http.ResponseWriter, r *http.Request, disposition string) {
	file, obj, err := h.fileService.OpenPublic(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	serveContent(w, r, file, obj, disposition)
}
