package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"clouddrive/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type errorKind struct {
	err     error
	status  int
	code    string
	message string
}

// порядок важен: первая совпавшая ошибка определяет ответ
var errorKinds = []errorKind{
	{domain.ErrNotFound, http.StatusNotFound, "not_found", "resource not found"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden", "access denied"},
	{domain.ErrQuotaExceeded, http.StatusInsufficientStorage, "quota_exceeded", "storage quota exceeded"},
	{domain.ErrInvalidName, http.StatusBadRequest, "invalid_name", ""},
	{domain.ErrDuplicateName, http.StatusConflict, "duplicate_name", ""},
	{domain.ErrCyclicMove, http.StatusUnprocessableEntity, "cyclic_move", "folder cannot be moved into itself or its descendant"},
	{domain.ErrResourceNotEmpty, http.StatusPreconditionFailed, "resource_not_empty", ""},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "invalid username or password"},
	{domain.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument", ""},
	{domain.ErrCycleDetected, http.StatusInternalServerError, "cycle_detected", "folder hierarchy is corrupted"},
	{domain.ErrStorageIO, http.StatusBadGateway, "storage_error", "file storage is unavailable"},
	{domain.ErrTransactionFailed, http.StatusInternalServerError, "transaction_failed", "operation failed, please retry"},
}

// writeError переводит доменную ошибку в HTTP-ответ. Пустое message
// означает, что текст ошибки безопасно показать клиенту
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := hlog.FromRequest(r)

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body is too large", Code: "too_large"})
		return
	}

	for _, kind := range errorKinds {
		if !errors.Is(err, kind.err) {
			continue
		}

		msg := kind.message
		if msg == "" {
			msg = err.Error()
		}
		if kind.status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("code", kind.code).Msg("request failed")
		} else {
			log.Debug().Err(err).Str("code", kind.code).Msg("request rejected")
		}
		writeJSON(w, kind.status, errorResponse{Error: msg, Code: kind.code})
		return
	}

	log.Error().Err(err).Msg("unexpected error")
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: "internal"})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Code: "bad_request"})
}
