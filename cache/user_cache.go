// Package cache provides a Redis read-through layer for user lookups.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Skryldev/users/models"
	"github.com/Skryldev/users/repo"
)

const keyPrefix = "users:id:"

// UserRepository decorates another repo.UserRepository, caching FindByID
// results in Redis. Writes through this decorator drop the affected key.
// Redis failures are logged and the call falls back to the wrapped
// repository, so the cache never changes what callers observe.
type UserRepository struct {
	next   repo.UserRepository
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

var (
	_ repo.UserRepository = (*UserRepository)(nil)
	_ repo.BatchInserter  = (*UserRepository)(nil)
)

// New wraps next. A zero ttl keeps entries until they are invalidated.
func New(next repo.UserRepository, client *redis.Client, ttl time.Duration, logger zerolog.Logger) *UserRepository {
	return &UserRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "user_cache").Logger(),
	}
}

func key(id int64) string { return keyPrefix + strconv.FormatInt(id, 10) }

func (r *UserRepository) FindByID(ctx context.Context, id int64) (models.Optional[*models.User], error) {
	payload, err := r.client.Get(ctx, key(id)).Bytes()
	switch {
	case err == nil:
		var u models.User
		if jerr := json.Unmarshal(payload, &u); jerr == nil {
			return models.Some(&u), nil
		}
		r.logger.Warn().Int64("user_id", id).Msg("discarding undecodable cache entry")
		r.invalidate(ctx, id)
	case !errors.Is(err, redis.Nil):
		r.logger.Warn().Err(err).Int64("user_id", id).Msg("cache read failed")
	}

	found, err := r.next.FindByID(ctx, id)
	if err != nil || !found.IsPresent() {
		return found, err
	}
	r.store(ctx, found.MustGet())
	return found, nil
}

func (r *UserRepository) store(ctx context.Context, u *models.User) {
	raw, err := json.Marshal(u)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, key(u.ID), raw, r.ttl).Err(); err != nil {
		r.logger.Warn().Err(err).Int64("user_id", u.ID).Msg("cache write failed")
	}
}

func (r *UserRepository) invalidate(ctx context.Context, ids ...int64) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = key(id)
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.Warn().Err(err).Ints64("user_ids", ids).Msg("cache invalidation failed")
	}
}

func (r *UserRepository) FindAll(ctx context.Context) ([]*models.User, error) {
	return r.next.FindAll(ctx)
}

func (r *UserRepository) FindByName(ctx context.Context, name string) ([]*models.User, error) {
	return r.next.FindByName(ctx, name)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) ([]*models.User, error) {
	return r.next.FindByEmail(ctx, email)
}

func (r *UserRepository) FindActiveUsers(ctx context.Context) ([]*models.User, error) {
	return r.next.FindActiveUsers(ctx)
}

func (r *UserRepository) FindByFilter(ctx context.Context, f repo.UserFilter) ([]*models.User, error) {
	return r.next.FindByFilter(ctx, f)
}

func (r *UserRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	return r.next.ExistsByID(ctx, id)
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	return r.next.Count(ctx)
}

func (r *UserRepository) Save(ctx context.Context, u *models.User) (*models.User, error) {
	if u.HasID() {
		defer r.invalidate(ctx, u.ID)
	}
	return r.next.Save(ctx, u)
}

func (r *UserRepository) DeleteByID(ctx context.Context, id int64) error {
	defer r.invalidate(ctx, id)
	return r.next.DeleteByID(ctx, id)
}

func (r *UserRepository) UpdateUserStatus(ctx context.Context, id int64, active bool) error {
	defer r.invalidate(ctx, id)
	return r.next.UpdateUserStatus(ctx, id, active)
}

// InsertAll uses the wrapped repository's batch path when it has one.
// Fresh inserts never have cached entries.
func (r *UserRepository) InsertAll(ctx context.Context, users []*models.User) ([]*models.User, error) {
	if b, ok := r.next.(repo.BatchInserter); ok {
		return b.InsertAll(ctx, users)
	}
	saved := make([]*models.User, 0, len(users))
	for _, u := range users {
		su, err := r.next.Save(ctx, u)
		if err != nil {
			return saved, err
		}
		saved = append(saved, su)
	}
	return saved, nil
}

// Ping checks the Redis connection.
func (r *UserRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
