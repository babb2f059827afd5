package refresh

import (
	"context"
	"time"

	"github.com/jrsteele09/storefront-relay/internal/errors"
	"github.com/patrickmn/go-cache"
)

// InMemoryRepo keeps rotations in process memory
type InMemoryRepo struct {
	rotations *cache.Cache
}

var _ Repo = (*InMemoryRepo)(nil)

func NewInMemoryRepo(ttl time.Duration) *InMemoryRepo {
	return &InMemoryRepo{
		rotations: cache.New(ttl, 2*ttl),
	}
}

const revokedPrefix = "revoked:"

func (r *InMemoryRepo) Upsert(_ context.Context, key string, rotation Rotation) error {
	r.rotations.Set(key, rotation, cache.DefaultExpiration)
	return nil
}

func (r *InMemoryRepo) Get(_ context.Context, key string) (*Rotation, error) {
	v, ok := r.rotations.Get(key)
	if !ok {
		return nil, errors.ErrNotFound
	}
	rotation := v.(Rotation)
	return &rotation, nil
}

func (r *InMemoryRepo) Revoke(_ context.Context, key string) error {
	r.rotations.Set(revokedPrefix+key, struct{}{}, cache.DefaultExpiration)
	return nil
}

func (r *InMemoryRepo) IsRevoked(_ context.Context, key string) (bool, error) {
	_, ok := r.rotations.Get(revokedPrefix + key)
	return ok, nil
}
