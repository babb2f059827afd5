package session

import "net/http"

// RequestContext is the session as seen by a single inbound request. It is
// rebuilt from cookies on every request and never cached.
type RequestContext struct {
	AccessToken  string
	RefreshToken string
}

// FromRequest reads both session cookies. Missing cookies yield empty values.
func FromRequest(r *http.Request) RequestContext {
	return RequestContext{
		AccessToken:  cookieValue(r, AccessTokenCookie),
		RefreshToken: cookieValue(r, RefreshTokenCookie),
	}
}

func (rc RequestContext) Authenticated() bool {
	return rc.AccessToken != ""
}

func (rc RequestContext) CanRefresh() bool {
	return rc.RefreshToken != ""
}

func (rc RequestContext) Tokens() TokenPair {
	return TokenPair{AccessToken: rc.AccessToken, RefreshToken: rc.RefreshToken}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
