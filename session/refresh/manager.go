// Package refresh exchanges refresh tokens for new session token pairs.
package refresh

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jrsteele09/storefront-relay/backend"
	"github.com/jrsteele09/storefront-relay/internal/errors"
	"github.com/jrsteele09/storefront-relay/internal/metrics"
	"github.com/jrsteele09/storefront-relay/session"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// maxRotationHops bounds the walk along remembered rotations when checking
// for a sign-out
const maxRotationHops = 8

var missingTokensBody = backend.JSONBody(json.RawMessage(`{"error":"backend returned no session tokens"}`))

// Exchange is the outcome of presenting a refresh token to the backend.
type Exchange struct {
	// Result is the backend's refresh response, or a synthesized 502 when a
	// 2xx response carried no access token.
	Result backend.Result
	// Pair is set when OK
	Pair session.TokenPair
	OK   bool
	// Reused is true when Pair came from a recent rotation instead of a new exchange
	Reused bool
}

// Manager performs refresh exchanges. Concurrent exchanges of the same
// refresh token share one backend call, and a rotation is remembered in the
// repo so late requests holding the old token receive the same new pair.
type Manager struct {
	gateway backend.Gateway
	repo    Repo
	metrics *metrics.Metrics
	group   singleflight.Group
}

// NewManager creates a refresh manager. repo may be nil to disable rotation reuse.
func NewManager(gateway backend.Gateway, repo Repo, m *metrics.Metrics) *Manager {
	return &Manager{
		gateway: gateway,
		repo:    repo,
		metrics: m,
	}
}

// TokenKey is the repo and single-flight key for a refresh token
func TokenKey(refreshToken string) string {
	sum := blake2b.Sum256([]byte(refreshToken))
	return hex.EncodeToString(sum[:])
}

// Exchange trades refreshToken for a new pair. A non-2xx backend answer is
// not an error: it is returned in Exchange.Result with OK false. Only
// transport failures are returned as errors.
func (m *Manager) Exchange(ctx context.Context, refreshToken string) (Exchange, error) {
	if refreshToken == "" {
		return Exchange{}, errors.ErrNoRefreshToken
	}
	key := TokenKey(refreshToken)

	// The flight outlives a cancelled caller so a rotation the backend has
	// already performed is still recorded; the caller stops waiting on ctx.
	flightCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (any, error) {
		if rotation, ok := m.recent(flightCtx, key); ok {
			m.metrics.ObserveRefresh(metrics.RefreshReused)
			return Exchange{
				Result: backend.Result{Status: http.StatusOK},
				Pair:   rotation.Pair,
				OK:     true,
				Reused: true,
			}, nil
		}
		return m.exchange(flightCtx, refreshToken, key)
	})

	select {
	case <-ctx.Done():
		return Exchange{}, errors.Wrapf(ctx.Err(), "[refresh Exchange]")
	case res := <-ch:
		if res.Err != nil {
			return Exchange{}, res.Err
		}
		if res.Shared {
			m.metrics.ObserveRefresh(metrics.RefreshShared)
		}
		return res.Val.(Exchange), nil
	}
}

// Revoke marks refreshToken as signed out. Remembered rotations that lead to
// it stop being reused, so an older token cannot revive the session.
func (m *Manager) Revoke(ctx context.Context, refreshToken string) error {
	if m.repo == nil || refreshToken == "" {
		return nil
	}
	if err := m.repo.Revoke(ctx, TokenKey(refreshToken)); err != nil {
		return errors.Wrapf(err, "[refresh Revoke]")
	}
	return nil
}

func (m *Manager) recent(ctx context.Context, key string) (*Rotation, bool) {
	if m.repo == nil {
		return nil, false
	}
	rotation, err := m.repo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("refresh: rotation lookup failed")
		}
		return nil, false
	}
	if m.revoked(ctx, rotation.Pair.RefreshToken) {
		return nil, false
	}
	return rotation, true
}

// revoked follows the remembered rotations starting at refreshToken and
// reports whether any token along the way was signed out. Lookup failures
// count as revoked.
func (m *Manager) revoked(ctx context.Context, refreshToken string) bool {
	for hop := 0; hop < maxRotationHops && refreshToken != ""; hop++ {
		key := TokenKey(refreshToken)
		revoked, err := m.repo.IsRevoked(ctx, key)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("refresh: revocation lookup failed")
			return true
		}
		if revoked {
			return true
		}
		next, err := m.repo.Get(ctx, key)
		if errors.Is(err, errors.ErrNotFound) {
			return false
		}
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("refresh: rotation lookup failed")
			return true
		}
		refreshToken = next.Pair.RefreshToken
	}
	return false
}

func (m *Manager) exchange(ctx context.Context, refreshToken, key string) (Exchange, error) {
	res, err := m.gateway.Do(ctx, backend.Request{
		Method: http.MethodPost,
		Path:   backend.PathRefresh,
		Body:   map[string]string{"refreshToken": refreshToken},
	})
	if err != nil {
		return Exchange{}, errors.Wrapf(err, "[refresh Exchange]")
	}
	if !res.OK() {
		m.metrics.ObserveRefresh(metrics.RefreshFailed)
		return Exchange{Result: res}, nil
	}

	pair, ok := session.ExtractTokenPair(res.Body)
	if !ok {
		m.metrics.ObserveRefresh(metrics.RefreshFailed)
		zerolog.Ctx(ctx).Error().Int("status", res.Status).Msg("refresh: backend response carried no access token")
		return Exchange{Result: backend.Result{Status: http.StatusBadGateway, Body: missingTokensBody}}, nil
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}

	if m.repo != nil {
		if err := m.repo.Upsert(ctx, key, Rotation{Pair: pair, RotatedAt: NowTimeFunc()}); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("refresh: failed to remember rotation")
		}
	}
	m.metrics.ObserveRefresh(metrics.RefreshExchanged)

	return Exchange{Result: res, Pair: pair, OK: true}, nil
}
