package session

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// Writer persists session changes onto whatever response is being composed
type Writer interface {
	SetTokens(pair TokenPair)
	Clear()
}

// CookieOptions controls the attributes shared by both session cookies
type CookieOptions struct {
	Secure bool
}

// CookieWriter writes the session as HttpOnly cookies on an HTTP response
type CookieWriter struct {
	w    http.ResponseWriter
	opts CookieOptions
}

var _ Writer = (*CookieWriter)(nil)

func NewCookieWriter(w http.ResponseWriter, opts CookieOptions) *CookieWriter {
	return &CookieWriter{w: w, opts: opts}
}

// SetTokens replaces both cookies. The access cookie is a session cookie;
// the refresh cookie follows the token's own exp claim when it has one.
func (cw *CookieWriter) SetTokens(pair TokenPair) {
	http.SetCookie(cw.w, cw.cookie(AccessTokenCookie, pair.AccessToken))

	refresh := cw.cookie(RefreshTokenCookie, pair.RefreshToken)
	if exp, ok := TokenExpiry(pair.RefreshToken); ok {
		refresh.Expires = exp
	}
	http.SetCookie(cw.w, refresh)
}

func (cw *CookieWriter) Clear() {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		c := cw.cookie(name, "")
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(cw.w, c)
	}
}

func (cw *CookieWriter) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   cw.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// TokenExpiry reads the exp claim of a JWT without verifying it. Opaque
// tokens and JWTs without exp report false.
func TokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
