package repo

import (
	"context"
	"strings"
	"time"

	"github.com/Skryldev/users/models"
)

// UserRepository is the persistence contract for users. Implementations
// decide storage and consistency; callers rely only on what is listed here.
//
// Lists are ordered by ascending ID. Name and email lookups are exact,
// case-sensitive matches. Operations addressing a missing ID by mutation
// (DeleteByID, UpdateUserStatus, Save of a user with an ID) return an error
// matching db.ErrNotFound; FindByID reports absence with models.None instead.
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (models.Optional[*models.User], error)
	FindAll(ctx context.Context) ([]*models.User, error)
	FindByName(ctx context.Context, name string) ([]*models.User, error)
	FindByEmail(ctx context.Context, email string) ([]*models.User, error)

	// Save inserts u when it has no ID and updates name, email and active
	// otherwise. The stored record is returned; u itself is not modified.
	Save(ctx context.Context, u *models.User) (*models.User, error)

	DeleteByID(ctx context.Context, id int64) error
	ExistsByID(ctx context.Context, id int64) (bool, error)
	Count(ctx context.Context) (int64, error)
	FindActiveUsers(ctx context.Context) ([]*models.User, error)
	UpdateUserStatus(ctx context.Context, id int64, active bool) error

	FindByFilter(ctx context.Context, f UserFilter) ([]*models.User, error)
}

// BatchInserter is implemented by repositories that can insert many new
// users more cheaply than repeated Save calls.
type BatchInserter interface {
	InsertAll(ctx context.Context, users []*models.User) ([]*models.User, error)
}

// UserFilter selects users by several optional criteria. Nil or empty fields
// do not constrain the result; the zero value matches every user.
type UserFilter struct {
	Active *bool
	MinID  *int64
	MaxID  *int64
	// NameContains is a case-insensitive substring of the name.
	NameContains string
	// CreatedAfter is exclusive.
	CreatedAfter *time.Time
}

// Matches reports whether u satisfies every set criterion.
func (f UserFilter) Matches(u *models.User) bool {
	if f.Active != nil && u.Active != *f.Active {
		return false
	}
	if f.MinID != nil && u.ID < *f.MinID {
		return false
	}
	if f.MaxID != nil && u.ID > *f.MaxID {
		return false
	}
	if f.NameContains != "" && !strings.Contains(strings.ToLower(u.Name), strings.ToLower(f.NameContains)) {
		return false
	}
	if f.CreatedAfter != nil && !u.CreatedAt.After(*f.CreatedAfter) {
		return false
	}
	return true
}

func clone(u *models.User) *models.User {
	c := *u
	return &c
}
