package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/wizard"
	"github.com/redis/go-redis/v9"
)

var (
	ErrNotFound = errors.New("draft not found")
	ErrNotOwner = errors.New("draft belongs to another user")
)

// Draft is an in-progress booking wizard owned by one user.
type Draft struct {
	ID      string        `json:"id"`
	OwnerID string        `json:"owner_id"`
	State   *wizard.State `json:"state"`
}

// Store keeps drafts in Redis under wizard:draft:<id>. Every save refreshes the TTL.
type Store struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewStore(rdb redis.Cmdable, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func key(id string) string {
	return "wizard:draft:" + id
}

func (s *Store) Create(ctx context.Context, ownerID string, state *wizard.State) (Draft, error) {
	d := Draft{ID: uuid.NewString(), OwnerID: ownerID, State: state}
	if err := s.Save(ctx, d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

func (s *Store) Get(ctx context.Context, id, ownerID string) (Draft, error) {
	raw, err := s.rdb.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Draft{}, ErrNotFound
	}
	if err != nil {
		return Draft{}, fmt.Errorf("draft get: %w", err)
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return Draft{}, fmt.Errorf("draft decode: %w", err)
	}
	if d.OwnerID != ownerID {
		return Draft{}, ErrNotOwner
	}
	return d, nil
}

func (s *Store) Save(ctx context.Context, d Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("draft encode: %w", err)
	}
	if err := s.rdb.Set(ctx, key(d.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("draft save: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, key(id)).Err()
}
