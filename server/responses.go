package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/jrsteele09/storefront-relay/backend"
	"github.com/jrsteele09/storefront-relay/internal/errors"
	"github.com/rs/zerolog"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"

	// headerSessionExpired tells the storefront to send the user to RouteLogin
	headerSessionExpired = "X-Session-Expired"

	maxBodyBytes = 1 << 20
)

// Static messages; backend bodies are forwarded as they are
const (
	msgInternalError = "internal server error"
	msgInvalidBody   = "invalid JSON body"
	msgNotFound      = "not found"
)

type errorResponse struct {
	Error string `json:"error"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeResult forwards a backend result's status and body unchanged
func writeResult(w http.ResponseWriter, res backend.Result) {
	body := res.Body.Bytes()
	if len(body) > 0 {
		w.Header().Set("Content-Type", res.Body.ContentType())
	}
	w.WriteHeader(res.Status)
	_, _ = w.Write(body)
}

// writeInternalError logs err and answers with a generic 500
func writeInternalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg(msg)
	writeJSONError(w, http.StatusInternalServerError, msgInternalError)
}

func markSessionExpired(w http.ResponseWriter) {
	w.Header().Set(headerSessionExpired, "true")
}

// readJSONBody returns the request body, nil when empty, or an error when it
// is not valid JSON
func readJSONBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrapf(err, "[server readJSONBody]")
	}
	if len(data) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		return nil, errors.Wrapf(errors.ErrInvalidBody, "[server readJSONBody]")
	}
	return json.RawMessage(data), nil
}

// requestBody avoids handing the gateway a typed nil that would encode as null
func requestBody(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
