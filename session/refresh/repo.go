package refresh

import (
	"context"
	"time"

	"github.com/jrsteele09/storefront-relay/session"
)

// Rotation records the pair the backend issued in exchange for a refresh token.
type Rotation struct {
	Pair      session.TokenPair `json:"pair"`
	RotatedAt time.Time         `json:"rotatedAt"`
}

// Repo remembers recent rotations keyed by the hash of the refresh token that
// was exchanged. Entries are short-lived; Get returns errors.ErrNotFound once
// an entry has expired. Revoked marks a refresh token as signed out so a
// remembered rotation leading to it is no longer handed out.
type Repo interface {
	Upsert(ctx context.Context, key string, rotation Rotation) error
	Get(ctx context.Context, key string) (*Rotation, error)
	Revoke(ctx context.Context, key string) error
	IsRevoked(ctx context.Context, key string) (bool, error)
}
