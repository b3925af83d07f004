package review

import (
	"net/http"
	"time"
)

const (
	CookieName   = "denken_storage"
	cookieMaxAge = 365 * 24 * time.Hour
)

// FromRequest decodes the review cookie; a missing cookie is an empty store.
func FromRequest(r *http.Request) Store {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return Store{}
	}
	return Decode(c.Value)
}

// SetCookie writes s back to the client.
func SetCookie(w http.ResponseWriter, s Store, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    Encode(s),
		Path:     "/",
		MaxAge:   int(cookieMaxAge / time.Second),
		Expires:  time.Now().Add(cookieMaxAge),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
