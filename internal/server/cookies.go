package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

const (
	// CookieName is the name of the session cookie
	CookieName = "safedrive_session"
	// CookieMaxAge is how long a session cookie stays valid
	CookieMaxAge = 24 * time.Hour
)

// cookieSigner signs session ids so a client cannot pick someone else's session.
type cookieSigner struct {
	key []byte
}

func newCookieSigner(secret string) cookieSigner {
	return cookieSigner{key: []byte(secret)}
}

func (c cookieSigner) mac(sessionID string) string {
	h := hmac.New(sha256.New, c.key)
	h.Write([]byte(sessionID))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// Sign returns "<sessionID>.<mac>".
func (c cookieSigner) Sign(sessionID string) string {
	return sessionID + "." + c.mac(sessionID)
}

// Verify returns the session id if value carries a valid signature.
func (c cookieSigner) Verify(value string) (string, bool) {
	i := strings.LastIndexByte(value, '.')
	if i <= 0 || i == len(value)-1 {
		return "", false
	}
	sid, sig := value[:i], value[i+1:]
	if !hmac.Equal([]byte(sig), []byte(c.mac(sid))) {
		return "", false
	}
	return sid, true
}

// SetSessionCookie sets an HTTP-only session cookie holding the signed session id
func (s *Server) SetSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string) {
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    s.signer.Sign(sessionID),
		Path:     "/",
		MaxAge:   int(CookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	}
	http.SetCookie(w, cookie)
}

// ClearSessionCookie removes the session cookie
func ClearSessionCookie(w http.ResponseWriter) {
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, cookie)
}

// sessionID reads and verifies the session id from the cookie, falling back
// to the X-Session-Id header for non-browser clients. Both carry the signed form.
func (s *Server) sessionID(r *http.Request) string {
	var raw string
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		raw = cookie.Value
	} else {
		raw = r.Header.Get("X-Session-Id")
	}
	if raw == "" {
		return ""
	}
	sid, ok := s.signer.Verify(raw)
	if !ok {
		return ""
	}
	return sid
}
