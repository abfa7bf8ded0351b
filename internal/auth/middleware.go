package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	"clouddrive/internal/domain"
)

type contextKey string

const principalKey contextKey = "principal"

// Principal - аутентифицированный владелец запроса
type Principal struct {
	AccountID int64
	Username  string
	IsAdmin   bool
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// FromContext извлекает Principal, положенный Authenticate
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// AccountSource отдает актуальное состояние аккаунта по id из токена
type AccountSource interface {
	GetAccount(ctx context.Context, id int64) (*domain.Account, error)
}

// Authenticate требует заголовок "Authorization: Bearer <token>". Без
// accounts проверяются только подпись и срок токена. С accounts отключенный
// или удаленный аккаунт отклоняется, а права берутся из базы
func (m *TokenManager) Authenticate(accounts AccountSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, "authorization required")
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				unauthorized(w, "invalid authorization header")
				return
			}

			claims, err := m.Verify(parts[1])
			if err != nil {
				hlog.FromRequest(r).Debug().Err(err).Msg("token rejected")
				unauthorized(w, "invalid or expired token")
				return
			}

			p := Principal{
				AccountID: claims.AccountID,
				Username:  claims.Username,
				IsAdmin:   claims.IsAdmin,
			}

			if accounts != nil {
				account, err := accounts.GetAccount(r.Context(), claims.AccountID)
				switch {
				case errors.Is(err, domain.ErrNotFound) || (err == nil && !account.IsActive):
					hlog.FromRequest(r).Info().Int64("account_id", claims.AccountID).Msg("token of inactive account rejected")
					unauthorized(w, "account is disabled")
					return
				case err != nil:
					hlog.FromRequest(r).Error().Err(err).Int64("account_id", claims.AccountID).Msg("failed to load account")
					writeError(w, http.StatusInternalServerError, "internal server error")
					return
				}
				p.Username = account.Username
				p.IsAdmin = account.IsAdmin
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAdmin пропускает только администраторов; ставится после Authenticate
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := FromContext(r.Context())
		if !ok {
			unauthorized(w, "authorization required")
			return
		}
		if !p.IsAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="clouddrive"`)
	writeError(w, http.StatusUnauthorized, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
