package server

import (
	"net/http"

	"github.com/jrsteele09/storefront-relay/backend"
)

// ResourceHandler proxies inventory requests (products, categories, talleres,
// almacenes, stock, facturas) to the same path on the backend
func (s *Server) ResourceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !backend.IsResource(r.PathValue("resource")) {
			writeJSONError(w, http.StatusNotFound, msgNotFound)
			return
		}

		body, err := readJSONBody(w, r)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, msgInvalidBody)
			return
		}

		req := backend.Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Body:   requestBody(body),
		}
		out, err := s.relay.Do(r.Context(), req, requestSession(r).Tokens())
		s.writeOutcome(w, r, out, err)
	}
}

// HealthHandler reports liveness
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
