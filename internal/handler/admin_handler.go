package handler

import (
	"net/http"
	"strconv"

	"clouddrive/internal/domain"
	"clouddrive/internal/service"
)

// AdminHandler - управление аккаунтами, доступно только администраторам
type AdminHandler struct {
	accountService  *service.AccountService
	quotaService    *service.StorageQuotaService
	activityService *service.ActivityService
}

type updateQuotaRequest struct {
	Limit int64 `json:"limit"`
}

func NewAdminHandler(
	accountService *service.AccountService,
	quotaService *service.StorageQuotaService,
	activityService *service.ActivityService,
) *AdminHandler {
	return &AdminHandler{
		accountService:  accountService,
		quotaService:    quotaService,
		activityService: activityService,
	}
}

func (h *AdminHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountService.ListAccounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *AdminHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.accountService.CreateAccount(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.activityService.Record(r.Context(), principal(r).AccountID, domain.ActionAccountCreate, domain.ResourceAccount, account.ID)
	writeJSON(w, http.StatusCreated, account)
}

func (h *AdminHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.accountService.DeleteAccount(r.Context(), principal(r).AccountID, accountID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	accountID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	account, err := h.accountService.ToggleStatus(r.Context(), principal(r).AccountID, accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *AdminHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req domain.UpdateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.accountService.UpdateAccount(r.Context(), principal(r).AccountID, accountID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// AccountStorage показывает все папки и файлы аккаунта
func (h *AdminHandler) AccountStorage(w http.ResponseWriter, r *http.Request) {
	accountID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	view, err := h.accountService.AccountStorage(r.Context(), accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ResetPassword возвращает новый пароль единственный раз
func (h *AdminHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	accountID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	password, err := h.accountService.ResetPassword(r.Context(), principal(r).AccountID, accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"password": password})
}

func (h *AdminHandler) UpdateQuotaLimit(w http.ResponseWriter, r *http.Request) {
	accountID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req updateQuotaRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.quotaService.UpdateQuotaLimit(r.Context(), accountID, req.Limit); err != nil {
		writeError(w, r, err)
		return
	}
	h.activityService.Record(r.Context(), principal(r).AccountID, domain.ActionQuotaChange, domain.ResourceAccount, accountID)

	info, err := h.quotaService.GetQuotaInfo(r.Context(), accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	accountID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	drift, err := h.quotaService.Reconcile(r.Context(), accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"drift": drift})
}

func (h *AdminHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		var err error
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			badRequest(w, "Invalid limit")
			return
		}
	}

	records, err := h.activityService.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
