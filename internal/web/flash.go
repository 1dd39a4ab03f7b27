package web

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const flashCookieName = "notes_flash"

// flasher carries one-shot messages across a redirect in a signed cookie.
type flasher struct {
	key []byte
}

func newFlasher(secret string) (*flasher, error) {
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte("notes flash cookie")), key); err != nil {
		return nil, err
	}
	return &flasher{key: key}, nil
}

func (f *flasher) mac(payload string) string {
	h := hmac.New(sha256.New, f.key)
	h.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func (f *flasher) encode(msg string) string {
	payload := base64.RawURLEncoding.EncodeToString([]byte(msg))
	return payload + "." + f.mac(payload)
}

func (f *flasher) decode(value string) (string, bool) {
	payload, sig, ok := strings.Cut(value, ".")
	if !ok || !hmac.Equal([]byte(sig), []byte(f.mac(payload))) {
		return "", false
	}
	msg, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", false
	}
	return string(msg), true
}

func (f *flasher) Set(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    f.encode(msg),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop returns the pending message, if any, and clears the cookie.
// Tampered cookies are dropped silently.
func (f *flasher) Pop(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	msg, ok := f.decode(cookie.Value)
	if !ok {
		return ""
	}
	return msg
}
