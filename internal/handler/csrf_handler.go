package handler

import (
	"net/http"
	"time"

	"filevault/internal/security"
)

const (
	csrfCookieName = "csrf_token"
	csrfHeaderName = "X-CSRF-Token"
	csrfTokenTTL   = 24 * time.Hour
)

// CSRFHandler реализует double-submit: токен лежит в cookie и
// дублируется клиентом в заголовке X-CSRF-Token.
type CSRFHandler struct {
	enabled bool
	secure  bool
}

func NewCSRFHandler(enabled, secureCookie bool) *CSRFHandler {
	return &CSRFHandler{enabled: enabled, secure: secureCookie}
}

func (h *CSRFHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	if !h.enabled {
		writeJSON(w, http.StatusOK, map[string]interface{}{"enabled": false})
		return
	}

	token, err := security.GenerateCSRFToken()
	if err != nil {
		writeError(w, r, err, "Failed to issue CSRF token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(csrfTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
	w.Header().Set(csrfHeaderName, token)
	writeJSON(w, http.StatusOK, map[string]interface{}{"enabled": true, "csrfToken": token})
}

// Require пропускает безопасные методы, остальные требуют совпадения
// заголовка и cookie
func (h *CSRFHandler) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.enabled {
			next.ServeHTTP(w, r)
			return
		}

		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get(csrfHeaderName)
		cookie, err := r.Cookie(csrfCookieName)
		if err != nil || header == "" || cookie.Value == "" || !security.ConstantTimeEqual(header, cookie.Value) {
			writeJSON(w, http.StatusForbidden, map[string]string{
				"message": "CSRF token validation failed",
				"code":    "CSRF_INVALID",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
