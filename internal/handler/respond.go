package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"clouddrive/internal/auth"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	json.NewEncoder(w).Encode(v)
}

// decodeJSON читает тело запроса в dst; лишние поля отклоняются
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, err)
			return false
		}
		hlog.FromRequest(r).Debug().Err(err).Msg("invalid request body")
		badRequest(w, "Invalid request body")
		return false
	}
	return true
}

// idParam разбирает числовой параметр маршрута
func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, fmt.Sprintf("Invalid %s", name))
		return 0, false
	}
	return id, true
}

// optionalID разбирает необязательный идентификатор папки; пусто - корень
func optionalID(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "root" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid folder id %q", raw)
	}
	return &id, nil
}

// principal возвращает владельца запроса; маршрут защищен auth.Authenticate
func principal(r *http.Request) auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}

// contentDisposition формирует заголовок с ASCII и UTF-8 вариантами имени
func contentDisposition(disposition, name string) string {
	encoded := url.PathEscape(name)
	ascii := strings.Map(func(r rune) rune {
		if r > 127 || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, name)
	return fmt.Sprintf(`%s; filename="%s"; filename*=UTF-8''%s`, disposition, ascii, encoded)
}
