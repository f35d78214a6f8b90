package server

import (
	"net/http"
	"time"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "webhook_chat_session"

	defaultCookieMaxAge = 2 * time.Hour
)

// setSessionCookie refreshes the session cookie on every response so an
// active session never expires while in use.
func setSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
}

func sessionFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
