package server

import (
	"net/http"

	"github.com/jrsteele09/storefront-relay/backend"
	"github.com/jrsteele09/storefront-relay/internal/errors"
	"github.com/jrsteele09/storefront-relay/relay"
	"github.com/jrsteele09/storefront-relay/session"
	"github.com/rs/zerolog"
)

// LoginHandler forwards credentials to the backend and stores the issued pair in cookies
func (s *Server) LoginHandler() http.HandlerFunc {
	return s.startSessionHandler(backend.PathLogin)
}

// RegisterHandler creates an account and signs the new user in
func (s *Server) RegisterHandler() http.HandlerFunc {
	return s.startSessionHandler(backend.PathRegister)
}

func (s *Server) startSessionHandler(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := readJSONBody(w, r)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, msgInvalidBody)
			return
		}

		res, err := s.gateway.Do(r.Context(), backend.Request{
			Method: http.MethodPost,
			Path:   path,
			Body:   requestBody(body),
		})
		if err != nil {
			writeInternalError(w, r, err, "Session start: backend call failed")
			return
		}
		if !res.OK() {
			writeResult(w, res)
			return
		}

		pair, ok := session.ExtractTokenPair(res.Body)
		if !ok {
			zerolog.Ctx(r.Context()).Error().Err(errors.ErrNoSessionTokens).Str("path", path).Msg("Session start: no tokens in backend response")
			writeJSONError(w, http.StatusBadGateway, errors.ErrNoSessionTokens.Error())
			return
		}

		s.sessionWriter(w).SetTokens(pair)
		writeResult(w, backend.Result{Status: res.Status, Body: session.StripTokens(res.Body)})
	}
}

// MeHandler returns the signed-in user, refreshing the session when needed
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc := requestSession(r)
		out, err := s.relay.Do(r.Context(), backend.Request{Method: http.MethodGet, Path: backend.PathMe}, rc.Tokens())
		s.writeOutcome(w, r, out, err)
	}
}

// RefreshHandler exchanges the refresh cookie for a new pair and rewrites both cookies
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc := session.FromRequest(r)
		if !rc.CanRefresh() {
			markSessionExpired(w)
			writeJSONError(w, http.StatusUnauthorized, errors.ErrNoRefreshToken.Error())
			return
		}

		ex, err := s.refresher.Exchange(r.Context(), rc.RefreshToken)
		if err != nil {
			writeInternalError(w, r, err, "Refresh: exchange failed")
			return
		}
		if !ex.OK {
			zerolog.Ctx(r.Context()).Info().Err(errors.ErrRefreshExhausted).Int("status", ex.Result.Status).Msg("Refresh: session expired")
			markSessionExpired(w)
			writeResult(w, ex.Result)
			return
		}

		s.sessionWriter(w).SetTokens(ex.Pair)
		writeJSON(w, http.StatusOK, okResponse{OK: true})
	}
}

// LogoutHandler revokes the refresh token locally and upstream when there is
// one and always clears both cookies. Revocation failures do not fail the logout.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc := session.FromRequest(r)
		if rc.CanRefresh() {
			if err := s.refresher.Revoke(r.Context(), rc.RefreshToken); err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Logout: failed to forget refresh token")
			}
			res, err := s.gateway.Do(r.Context(), backend.Request{
				Method: http.MethodPost,
				Path:   backend.PathLogout,
				Body:   map[string]string{"refreshToken": rc.RefreshToken},
				Token:  rc.AccessToken,
			})
			switch {
			case err != nil:
				zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Logout: failed to revoke refresh token")
			case !res.OK():
				zerolog.Ctx(r.Context()).Debug().Int("status", res.Status).Msg("Logout: backend declined revocation")
			}
		}

		s.sessionWriter(w).Clear()
		writeJSON(w, http.StatusOK, okResponse{OK: true})
	}
}

// writeOutcome persists a refreshed pair and forwards the final backend result
func (s *Server) writeOutcome(w http.ResponseWriter, r *http.Request, out relay.Outcome, err error) {
	if out.Refreshed != nil {
		s.sessionWriter(w).SetTokens(*out.Refreshed)
	}
	if err != nil {
		writeInternalError(w, r, err, "Relay: backend call failed")
		return
	}
	if out.RefreshFailed {
		markSessionExpired(w)
	}
	writeResult(w, out.Result)
}
