package refresh_test

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/storefront-relay/backend"
	"github.com/jrsteele09/storefront-relay/backend/backendfake"
	"github.com/jrsteele09/storefront-relay/internal/errors"
	"github.com/jrsteele09/storefront-relay/session"
	"github.com/jrsteele09/storefront-relay/session/refresh"
	"github.com/stretchr/testify/require"
)

func TestExchangeRotatesTokens(t *testing.T) {
	gw := backendfake.NewFakeGateway().
		On(backend.PathRefresh, backendfake.JSON(http.StatusOK, map[string]string{"accessToken": "A2", "refreshToken": "R2"}))
	m := refresh.NewManager(gw, nil, nil)

	ex, err := m.Exchange(t.Context(), "R1")
	require.NoError(t, err)
	require.True(t, ex.OK)
	require.False(t, ex.Reused)
	require.Equal(t, session.TokenPair{AccessToken: "A2", RefreshToken: "R2"}, ex.Pair)

	calls := gw.Calls(backend.PathRefresh)
	require.Len(t, calls, 1)
	require.Equal(t, http.MethodPost, calls[0].Method)
	require.Equal(t, map[string]string{"refreshToken": "R1"}, calls[0].Body)
	require.Empty(t, calls[0].Token)
}

func TestExchangeKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	gw := backendfake.NewFakeGateway().
		On(backend.PathRefresh, backendfake.JSON(http.StatusOK, map[string]string{"access_token": "A2"}))
	m := refresh.NewManager(gw, nil, nil)

	ex, err := m.Exchange(t.Context(), "R1")
	require.NoError(t, err)
	require.True(t, ex.OK)
	require.Equal(t, session.TokenPair{AccessToken: "A2", RefreshToken: "R1"}, ex.Pair)
}

func TestExchangeRejected(t *testing.T) {
	gw := backendfake.NewFakeGateway().
		On(backend.PathRefresh, backendfake.JSON(http.StatusForbidden, map[string]string{"message": "refresh token revoked"}))
	repo := refresh.NewInMemoryRepo(time.Minute)
	m := refresh.NewManager(gw, repo, nil)

	ex, err := m.Exchange(t.Context(), "R1")
	require.NoError(t, err)
	require.False(t, ex.OK)
	require.Equal(t, http.StatusForbidden, ex.Result.Status)

	_, err = repo.Get(t.Context(), refresh.TokenKey("R1"))
	require.ErrorIs(t, err, errors.ErrNotFound, "failed exchanges are not remembered")
}

func TestExchangeWithoutAccessTokenIsBadGateway(t *testing.T) {
	gw := backendfake.NewFakeGateway().
		On(backend.PathRefresh, backendfake.Text(http.StatusOK, "ok"))
	m := refresh.NewManager(gw, nil, nil)

	ex, err := m.Exchange(t.Context(), "R1")
	require.NoError(t, err)
	require.False(t, ex.OK)
	require.Equal(t, http.StatusBadGateway, ex.Result.Status)
}

func TestExchangeTransportFailure(t *testing.T) {
	gw := backendfake.NewFakeGateway().
		On(backend.PathRefresh, backendfake.Fail(errors.ErrBackendUnavailable))
	m := refresh.NewManager(gw, nil, nil)

	_, err := m.Exchange(t.Context(), "R1")
	require.ErrorIs(t, err, errors.ErrBackendUnavailable)
}

func TestExchangeRequiresToken(t *testing.T) {
	m := refresh.NewManager(backendfake.NewFakeGateway(), nil, nil)

	_, err := m.Exchange(t.Context(), "")
	require.ErrorIs(t, err, errors.ErrNoRefreshToken)
}

func TestExchangeReusesRecentRotation(t *testing.T) {
	gw := backendfake.NewFakeGateway().
		On(backend.PathRefresh, backendfake.JSON(http.StatusOK, map[string]string{"accessToken": "A2", "refreshToken": "R2"}))
	m := refresh.NewManager(gw, refresh.NewInMemoryRepo(time.Minute), nil)

	first, err := m.Exchange(t.Context(), "R1")
	require.NoError(t, err)
	require.False(t, first.Reused)

	second, err := m.Exchange(t.Context(), "R1")
	require.NoError(t, err)
	require.True(t, second.OK)
	require.True(t, second.Reused)
	require.Equal(t, first.Pair, second.Pair)
	require.Len(t, gw.Calls(backend.PathRefresh), 1, "the rotated token is not presented twice")
}

func TestExchangeRotationExpires(t *testing.T) {
	gw := backendfake.NewFakeGateway().
		On(backend.PathRefresh,
			backendfake.JSON(http.StatusOK, map[string]string{"accessToken": "A2", "refreshToken": "R2"}),
			backendfake.JSON(http.StatusUnauthorized, map[string]string{"message": "revoked"}),
		)
	m := refresh.NewManager(gw, refresh.NewInMemoryRepo(20*time.Millisecond), nil)

	_, err := m.Exchange(t.Context(), "R1")
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	ex, err := m.Exchange(t.Context(), "R1")
	require.NoError(t, err)
	require.False(t, ex.OK)
	require.Equal(t, http.StatusUnauthorized, ex.Result.Status)
	require.Len(t, gw.Calls(backend.PathRefresh), 2)
}

func TestConcurrentExchangesShareOneBackendCall(t *testing.T) {
	var exchanges atomic.Int32
	release := make(chan struct{})
	gw := backendfake.NewFakeGateway().
		On(backend.PathRefresh, func(backend.Request) (backend.Result, error) {
			exchanges.Add(1)
			<-release
			return backendfake.JSON(http.StatusOK, map[string]string{"accessToken": "A2", "refreshToken": "R2"})(backend.Request{})
		})
	m := refresh.NewManager(gw, refresh.NewInMemoryRepo(time.Minute), nil)

	const callers = 8
	results := make([]refresh.Exchange, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.Exchange(t.Context(), "R1")
		}(i)
	}

	require.Eventually(t, func() bool { return exchanges.Load() == 1 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), exchanges.Load())
	for i, ex := range results {
		require.NoError(t, errs[i])
		require.True(t, ex.OK)
		require.Equal(t, session.TokenPair{AccessToken: "A2", RefreshToken: "R2"}, ex.Pair)
	}
}

func TestRevokeStopsReuse(t *testing.T) {
	gw := backendfake.NewFakeGateway().
		On(backend.PathRefresh,
			backendfake.JSON(http.StatusOK, map[string]string{"accessToken": "A2", "refreshToken": "R2"}),
			backendfake.JSON(http.StatusUnauthorized, map[string]string{"message": "revoked"}),
		)
	m := refresh.NewManager(gw, refresh.NewInMemoryRepo(time.Minute), nil)

	_, err := m.Exchange(t.Context(), "R1")
	require.NoError(t, err)
	require.NoError(t, m.Revoke(t.Context(), "R2"))

	ex, err := m.Exchange(t.Context(), "R1")
	require.NoError(t, err)
	require.False(t, ex.OK)
	require.False(t, ex.Reused)
	require.Equal(t, http.StatusUnauthorized, ex.Result.Status)
	require.Len(t, gw.Calls(backend.PathRefresh), 2)
}

func TestRevokeFollowsRotationChain(t *testing.T) {
	gw := backendfake.NewFakeGateway().
		On(backend.PathRefresh, func(req backend.Request) (backend.Result, error) {
			switch req.Body.(map[string]string)["refreshToken"] {
			case "R1":
				return backendfake.JSON(http.StatusOK, map[string]string{"accessToken": "A2", "refreshToken": "R2"})(req)
			case "R2":
				return backendfake.JSON(http.StatusOK, map[string]string{"accessToken": "A3", "refreshToken": "R3"})(req)
			}
			return backendfake.JSON(http.StatusUnauthorized, map[string]string{"message": "revoked"})(req)
		})
	m := refresh.NewManager(gw, refresh.NewInMemoryRepo(time.Minute), nil)

	_, err := m.Exchange(t.Context(), "R1")
	require.NoError(t, err)
	_, err = m.Exchange(t.Context(), "R2")
	require.NoError(t, err)
	require.NoError(t, m.Revoke(t.Context(), "R3"))

	ex, err := m.Exchange(t.Context(), "R1")
	require.NoError(t, err)
	require.False(t, ex.Reused, "R1 leads to the signed out R3")
	require.Len(t, gw.Calls(backend.PathRefresh), 3)
}

func TestRevokeWithoutRepo(t *testing.T) {
	m := refresh.NewManager(backendfake.NewFakeGateway(), nil, nil)
	require.NoError(t, m.Revoke(t.Context(), "R1"))
}

func TestExchangeReturnsWhenCallerGivesUp(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	gw := backendfake.NewFakeGateway().
		On(backend.PathRefresh, func(backend.Request) (backend.Result, error) {
			<-release
			return backendfake.JSON(http.StatusOK, map[string]string{"accessToken": "A2", "refreshToken": "R2"})(backend.Request{})
		})
	m := refresh.NewManager(gw, refresh.NewInMemoryRepo(time.Minute), nil)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := m.Exchange(ctx, "R1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestTokenKey(t *testing.T) {
	key := refresh.TokenKey("R1")
	require.Len(t, key, 64)
	require.NotContains(t, key, "R1")
	require.Equal(t, key, refresh.TokenKey("R1"))
	require.NotEqual(t, key, refresh.TokenKey("R2"))
}
