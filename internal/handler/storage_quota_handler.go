package handler

import (
	"net/http"

	"clouddrive/internal/service"
)

type StorageQuotaHandler struct {
	quotaService *service.StorageQuotaService
}

func NewStorageQuotaHandler(quotaService *service.StorageQuotaService) *StorageQuotaHandler {
	return &StorageQuotaHandler{
		quotaService: quotaService,
	}
}

func (h *StorageQuotaHandler) GetQuotaInfo(w http.ResponseWriter, r *http.Request) {
	quotaInfo, err := h.quotaService.GetQuotaInfo(r.Context(), principal(r).AccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quotaInfo)
}
