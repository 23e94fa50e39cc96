package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/metrics"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	UnknownStaff   = "Unknown Staff"
	UnknownService = "Unknown Service"
	UnknownClient  = "Unknown Client"
)

type Kind string

const (
	KindStaff   Kind = "staff"
	KindService Kind = "service"
	KindClient  Kind = "client"
)

type StaffSource interface {
	ByIDs(ctx context.Context, ids []string) ([]model.Staff, error)
}

type ServiceSource interface {
	ByIDs(ctx context.Context, ids []string) ([]model.Service, error)
}

type ClientSource interface {
	ByIDs(ctx context.Context, ids []string) ([]model.Client, error)
}

type Config struct {
	Staff    StaffSource
	Services ServiceSource
	Clients  ClientSource
	// Redis is optional. Without it every lookup goes to the sources.
	Redis   redis.Cmdable
	TTL     time.Duration
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Resolver fetches referenced records by id set, one query per kind, through
// a Redis read-through cache.
type Resolver struct {
	staff    StaffSource
	services ServiceSource
	clients  ClientSource
	rdb      redis.Cmdable
	ttl      time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func New(cfg Config) *Resolver {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Resolver{
		staff:    cfg.Staff,
		services: cfg.Services,
		clients:  cfg.Clients,
		rdb:      cfg.Redis,
		ttl:      cfg.TTL,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
}

func (r *Resolver) Staff(ctx context.Context, ids []string) (map[string]model.Staff, error) {
	return lookup(ctx, r, KindStaff, ids, r.staff.ByIDs, func(s model.Staff) string { return s.ID })
}

func (r *Resolver) Services(ctx context.Context, ids []string) (map[string]model.Service, error) {
	return lookup(ctx, r, KindService, ids, r.services.ByIDs, func(s model.Service) string { return s.ID })
}

func (r *Resolver) Clients(ctx context.Context, ids []string) (map[string]model.Client, error) {
	return lookup(ctx, r, KindClient, ids, r.clients.ByIDs, func(c model.Client) string { return c.ID })
}

// Forget drops cached entries after a write to the underlying rows.
func (r *Resolver) Forget(ctx context.Context, kind Kind, ids ...string) {
	if r.rdb == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, cacheKey(kind, id))
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		r.logger.Warn("lookup cache invalidation failed", "kind", kind, "err", err)
	}
}

func cacheKey(kind Kind, id string) string {
	return fmt.Sprintf("lookup:%s:%s", kind, id)
}

func lookup[T any](ctx context.Context, r *Resolver, kind Kind, ids []string, fetch func(context.Context, []string) ([]T, error), idOf func(T) string) (map[string]T, error) {
	ids = distinct(ids)
	out := make(map[string]T, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	misses := r.fromCache(ctx, kind, ids, func(id, raw string) bool {
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return false
		}
		out[id] = v
		return true
	})
	r.metrics.Lookup(string(kind), len(ids)-len(misses), len(misses))
	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := fetch(ctx, misses)
	if err != nil {
		return out, fmt.Errorf("lookup %s: %w", kind, err)
	}
	for _, v := range fetched {
		out[idOf(v)] = v
	}
	store(ctx, r, kind, fetched, idOf)
	return out, nil
}

// fromCache calls keep for every cached id and returns the ids still missing.
// Cache failures degrade to misses.
func (r *Resolver) fromCache(ctx context.Context, kind Kind, ids []string, keep func(id, raw string) bool) []string {
	if r.rdb == nil {
		return ids
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cacheKey(kind, id)
	}
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		r.logger.Warn("lookup cache read failed", "kind", kind, "err", err)
		return ids
	}
	var misses []string
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok || !keep(ids[i], raw) {
			misses = append(misses, ids[i])
		}
	}
	return misses
}

func store[T any](ctx context.Context, r *Resolver, kind Kind, values []T, idOf func(T) string) {
	if r.rdb == nil || len(values) == 0 {
		return
	}
	pipe := r.rdb.Pipeline()
	for _, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			continue
		}
		pipe.SetEx(ctx, cacheKey(kind, idOf(v)), data, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("lookup cache write failed", "kind", kind, "err", err)
	}
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
