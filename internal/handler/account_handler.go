package handler

import (
	"net/http"
	"time"

	"clouddrive/internal/auth"
	"clouddrive/internal/domain"
	"clouddrive/internal/service"
)

type AccountHandler struct {
	accountService *service.AccountService
	tokens         *auth.TokenManager
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type settingsRequest struct {
	CurrentPassword string `json:"current_password"`
	Email           string `json:"email"`
	NewPassword     string `json:"new_password"`
}

type tokenResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Account   *domain.Account `json:"account"`
}

func NewAccountHandler(accountService *service.AccountService, tokens *auth.TokenManager) *AccountHandler {
	return &AccountHandler{accountService: accountService, tokens: tokens}
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.accountService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.issue(w, r, http.StatusCreated, account)
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.accountService.VerifyCredentials(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.issue(w, r, http.StatusOK, account)
}

func (h *AccountHandler) issue(w http.ResponseWriter, r *http.Request, status int, account *domain.Account) {
	token, expiresAt, err := h.tokens.Issue(account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, tokenResponse{Token: token, ExpiresAt: expiresAt, Account: account})
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, err := h.accountService.GetAccount(r.Context(), principal(r).AccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// UpdateSettings меняет email и пароль текущего пользователя
func (h *AccountHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.accountService.UpdateSettings(r.Context(), principal(r).AccountID, req.CurrentPassword, req.Email, req.NewPassword)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}
