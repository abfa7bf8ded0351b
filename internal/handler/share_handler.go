package handler

import (
	"net/http"
	"time"

	"clouddrive/internal/domain"
	"clouddrive/internal/service"
)

type ShareHandler struct {
	shareService *service.ShareService
}

type createShareRequest struct {
	Username   string            `json:"username"`
	Permission domain.Permission `json:"permission"`
	ExpiresIn  *int64            `json:"expires_in,omitempty"` // секунды
}

func NewShareHandler(shareService *service.ShareService) *ShareHandler {
	return &ShareHandler{shareService: shareService}
}

// CreateShare выдает доступ к файлу {id} аккаунту username
func (h *ShareHandler) CreateShare(w http.ResponseWriter, r *http.Request) {
	fileID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req createShareRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Permission == "" {
		req.Permission = domain.PermissionRead
	}

	var expiresAt *time.Time
	if req.ExpiresIn != nil {
		at := time.Now().Add(time.Duration(*req.ExpiresIn) * time.Second)
		expiresAt = &at
	}

	grant, err := h.shareService.Grant(r.Context(), principal(r).AccountID, fileID, req.Username, req.Permission, expiresAt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, grant)
}

func (h *ShareHandler) ListFileShares(w http.ResponseWriter, r *http.Request) {
	fileID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	grants, err := h.shareService.ListForFile(r.Context(), principal(r).AccountID, fileID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, grants)
}

func (h *ShareHandler) RevokeShare(w http.ResponseWriter, r *http.Request) {
	grantID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.shareService.Revoke(r.Context(), principal(r).AccountID, grantID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ShareHandler) GetSharedWithMe(w http.ResponseWriter, r *http.Request) {
	shared, err := h.shareService.SharedWithMe(r.Context(), principal(r).AccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shared)
}
