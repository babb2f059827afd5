// Package relay makes authenticated backend calls resilient to access token
// expiry: a 401 triggers at most one refresh exchange and one retry.
package relay

import (
	"context"
	"net/http"

	"github.com/jrsteele09/storefront-relay/backend"
	"github.com/jrsteele09/storefront-relay/internal/errors"
	"github.com/jrsteele09/storefront-relay/session"
	"github.com/jrsteele09/storefront-relay/session/refresh"
	"github.com/rs/zerolog"
)

// Refresher exchanges a refresh token for a new pair
type Refresher interface {
	Exchange(ctx context.Context, refreshToken string) (refresh.Exchange, error)
}

var _ Refresher = (*refresh.Manager)(nil)

// Outcome is the final result of an orchestrated call
type Outcome struct {
	Result backend.Result
	// Refreshed holds the new pair when a refresh happened. The caller must
	// persist it on its response.
	Refreshed *session.TokenPair
	// RefreshFailed is set when the exchange was rejected; Result then holds
	// the exchange's status and body, not the original request's.
	RefreshFailed bool
}

type Orchestrator struct {
	gateway   backend.Gateway
	refresher Refresher
}

func New(gateway backend.Gateway, refresher Refresher) *Orchestrator {
	return &Orchestrator{
		gateway:   gateway,
		refresher: refresher,
	}
}

// Do sends req with the pair's access token. Only a 401 with a refresh token
// available leads to an exchange; a successful exchange is followed by
// exactly one retry whose result is final. If that retry fails in transit
// the error is returned together with Outcome.Refreshed so the rotated pair
// is not lost.
func (o *Orchestrator) Do(ctx context.Context, req backend.Request, tokens session.TokenPair) (Outcome, error) {
	res, err := o.gateway.Do(ctx, req.WithToken(tokens.AccessToken))
	if err != nil {
		return Outcome{}, err
	}
	if res.Status != http.StatusUnauthorized || tokens.RefreshToken == "" {
		return Outcome{Result: res}, nil
	}

	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", req.Path).Msg("relay: access token rejected, refreshing")

	ex, err := o.refresher.Exchange(ctx, tokens.RefreshToken)
	if err != nil {
		return Outcome{}, err
	}
	if !ex.OK {
		logger.Info().Err(errors.ErrRefreshExhausted).Int("status", ex.Result.Status).Msg("relay: session expired")
		return Outcome{Result: ex.Result, RefreshFailed: true}, nil
	}

	pair := ex.Pair
	retry, err := o.gateway.Do(ctx, req.WithToken(pair.AccessToken))
	if err != nil {
		return Outcome{Refreshed: &pair}, err
	}
	return Outcome{Result: retry, Refreshed: &pair}, nil
}
