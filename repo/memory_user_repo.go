package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Skryldev/users/db"
	"github.com/Skryldev/users/models"
)

// memoryUserRepo keeps users in a map. Stored values are copies, so callers
// can never mutate repository state through a returned pointer.
type memoryUserRepo struct {
	mu     sync.RWMutex
	users  map[int64]models.User
	nextID int64
}

// NewMemoryUserRepository returns an empty, goroutine-safe UserRepository.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepo{users: make(map[int64]models.User), nextID: 1}
}

func (r *memoryUserRepo) FindByID(_ context.Context, id int64) (models.Optional[*models.User], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return models.None[*models.User](), nil
	}
	return models.Some(&u), nil
}

func (r *memoryUserRepo) FindAll(_ context.Context) ([]*models.User, error) {
	return r.collect(func(*models.User) bool { return true }), nil
}

func (r *memoryUserRepo) FindByName(_ context.Context, name string) ([]*models.User, error) {
	return r.collect(func(u *models.User) bool { return u.Name == name }), nil
}

func (r *memoryUserRepo) FindByEmail(_ context.Context, email string) ([]*models.User, error) {
	return r.collect(func(u *models.User) bool { return u.Email == email }), nil
}

func (r *memoryUserRepo) FindActiveUsers(_ context.Context) ([]*models.User, error) {
	return r.collect(func(u *models.User) bool { return u.Active }), nil
}

func (r *memoryUserRepo) FindByFilter(_ context.Context, f UserFilter) ([]*models.User, error) {
	return r.collect(f.Matches), nil
}

func (r *memoryUserRepo) Save(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	saved := *u
	if !saved.HasID() {
		saved.ID = r.nextID
		r.nextID++
		r.users[saved.ID] = saved
		return &saved, nil
	}

	existing, ok := r.users[saved.ID]
	if !ok {
		return nil, fmt.Errorf("repo/user: update %d: %w", saved.ID, db.ErrNotFound)
	}
	existing.Name = saved.Name
	existing.Email = saved.Email
	existing.Active = saved.Active
	r.users[saved.ID] = existing
	return &existing, nil
}

func (r *memoryUserRepo) DeleteByID(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return fmt.Errorf("repo/user: delete %d: %w", id, db.ErrNotFound)
	}
	delete(r.users, id)
	return nil
}

func (r *memoryUserRepo) ExistsByID(_ context.Context, id int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.users[id]
	return ok, nil
}

func (r *memoryUserRepo) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.users)), nil
}

func (r *memoryUserRepo) UpdateUserStatus(_ context.Context, id int64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return fmt.Errorf("repo/user: update status %d: %w", id, db.ErrNotFound)
	}
	u.Active = active
	r.users[id] = u
	return nil
}

// collect returns copies of the users accepted by keep, ordered by ID.
func (r *memoryUserRepo) collect(keep func(*models.User) bool) []*models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		if keep(&u) {
			c := u
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var _ UserRepository = (*memoryUserRepo)(nil)
