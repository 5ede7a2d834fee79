// Package cache provides a Redis read-through cache in front of the officer
// roster. Assignment checks hit the directory on every case transition, so
// roster lookups are the hottest read path in the system.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"casefile/internal/officers/models"
	"casefile/internal/officers/store"
	id "casefile/pkg/domain"
)

const officerKeyPrefix = "officer:"

// DefaultTTL bounds roster staleness; deactivated officers stop resolving
// within this window.
const DefaultTTL = 5 * time.Minute

// Directory is a read-through cache over a roster directory. Cache failures
// degrade to the underlying store; they are never surfaced to callers.
type Directory struct {
	next   store.Directory
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures the cached directory.
type Option func(*Directory)

// WithTTL overrides the cache entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(d *Directory) { d.ttl = ttl }
}

// WithLogger attaches a logger for cache degradation warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Directory) { d.logger = logger }
}

// New wraps the given directory with a Redis read-through cache.
func New(next store.Directory, client *redis.Client, opts ...Option) *Directory {
	d := &Directory{
		next:   next,
		client: client,
		ttl:    DefaultTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// FindByID returns the cached officer, falling back to the underlying store
// on miss or cache error and populating the cache on the way back.
func (d *Directory) FindByID(ctx context.Context, officerID id.OfficerID) (*models.Officer, error) {
	key := officerKeyPrefix + officerID.String()

	raw, err := d.client.Get(ctx, key).Bytes()
	if err == nil {
		var officer models.Officer
		if unmarshalErr := json.Unmarshal(raw, &officer); unmarshalErr == nil {
			return &officer, nil
		}
		// Corrupt entry; drop it and fall through to the store.
		d.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		d.logger.WarnContext(ctx, "officer cache read failed, falling back to store",
			slog.String("officer_id", officerID.String()),
			slog.String("error", err.Error()))
	}

	officer, err := d.next.FindByID(ctx, officerID)
	if err != nil {
		return nil, err
	}

	if raw, marshalErr := json.Marshal(officer); marshalErr == nil {
		if setErr := d.client.Set(ctx, key, raw, d.ttl).Err(); setErr != nil {
			d.logger.WarnContext(ctx, "officer cache write failed",
				slog.String("officer_id", officerID.String()),
				slog.String("error", setErr.Error()))
		}
	}
	return officer, nil
}

// Invalidate drops the cached entry for an officer. Call after roster
// mutations so activity changes take effect immediately.
func (d *Directory) Invalidate(ctx context.Context, officerID id.OfficerID) error {
	if err := d.client.Del(ctx, officerKeyPrefix+officerID.String()).Err(); err != nil {
		return fmt.Errorf("invalidate officer cache: %w", err)
	}
	return nil
}
