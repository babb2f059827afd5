package session

import (
	"encoding/json"

	"github.com/jrsteele09/storefront-relay/backend"
)

// Key spellings accepted in backend responses, in order of preference
var (
	accessTokenKeys  = []string{"accessToken", "access_token", "token"}
	refreshTokenKeys = []string{"refreshToken", "refresh_token"}
)

// TokenPair is the session of one browser agent
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// lookupString returns the first non-empty string value among keys
func lookupString(obj map[string]any, keys []string) string {
	for _, k := range keys {
		if v, ok := obj[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// ExtractTokenPair reads a token pair from a backend response body. It
// reports false when the body is not a JSON object or carries no access token.
func ExtractTokenPair(body backend.Body) (TokenPair, bool) {
	obj, ok := body.Object()
	if !ok {
		return TokenPair{}, false
	}
	pair := TokenPair{
		AccessToken:  lookupString(obj, accessTokenKeys),
		RefreshToken: lookupString(obj, refreshTokenKeys),
	}
	return pair, pair.AccessToken != ""
}

// StripTokens removes every accepted token key from a JSON object body so
// the credentials never reach page scripts. Other bodies are returned as is.
func StripTokens(body backend.Body) backend.Body {
	obj, ok := body.Object()
	if !ok {
		return body
	}
	for _, keys := range [][]string{accessTokenKeys, refreshTokenKeys} {
		for _, k := range keys {
			delete(obj, k)
		}
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return body
	}
	return backend.JSONBody(raw)
}
