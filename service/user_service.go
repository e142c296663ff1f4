package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Skryldev/users/db"
	"github.com/Skryldev/users/models"
	"github.com/Skryldev/users/repo"
)

// UserService is the application layer over a UserRepository. It adds no
// rules of its own: creation stamps the clock, deletion reports whether a
// user was there, everything else is handed to the repository.
type UserService struct {
	repo   repo.UserRepository
	clock  models.Clock
	logger zerolog.Logger
}

// New builds a UserService. A nil clock falls back to models.SystemClock.
func New(r repo.UserRepository, clock models.Clock, logger zerolog.Logger) *UserService {
	if clock == nil {
		clock = models.SystemClock{}
	}
	return &UserService{
		repo:   r,
		clock:  clock,
		logger: logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *UserService) FindAll(ctx context.Context) ([]*models.User, error) {
	return s.repo.FindAll(ctx)
}

func (s *UserService) FindByID(ctx context.Context, id int64) (models.Optional[*models.User], error) {
	return s.repo.FindByID(ctx, id)
}

func (s *UserService) FindByName(ctx context.Context, name string) ([]*models.User, error) {
	return s.repo.FindByName(ctx, name)
}

func (s *UserService) FindActive(ctx context.Context) ([]*models.User, error) {
	return s.repo.FindActiveUsers(ctx)
}

func (s *UserService) Search(ctx context.Context, f repo.UserFilter) ([]*models.User, error) {
	return s.repo.FindByFilter(ctx, f)
}

func (s *UserService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// CreateUser saves a new active user stamped with the service clock.
func (s *UserService) CreateUser(ctx context.Context, name, email string) (*models.User, error) {
	u, err := s.repo.Save(ctx, models.NewUser(s.clock, name, email))
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Debug().Int64("user_id", u.ID).Msg("user created")
	return u, nil
}

// DeleteUser removes the user and reports true, or reports false when no
// user has that ID, including when another caller deleted it first.
func (s *UserService) DeleteUser(ctx context.Context, id int64) (bool, error) {
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete user %d: %w", id, err)
	}
	s.logger.Debug().Int64("user_id", id).Msg("user deleted")
	return true, nil
}

// SetActive flips the active flag of an existing user.
func (s *UserService) SetActive(ctx context.Context, id int64, active bool) error {
	if err := s.repo.UpdateUserStatus(ctx, id, active); err != nil {
		return fmt.Errorf("set active %d: %w", id, err)
	}
	s.logger.Debug().Int64("user_id", id).Bool("active", active).Msg("user status updated")
	return nil
}

// BulkCreate creates one user per entry, in order. Repositories that
// implement repo.BatchInserter receive the whole batch at once. On error the
// users saved so far are returned with it.
func (s *UserService) BulkCreate(ctx context.Context, params []models.CreateUserParams) ([]*models.User, error) {
	users := make([]*models.User, len(params))
	for i, p := range params {
		users[i] = models.NewUser(s.clock, p.Name, p.Email)
	}

	if b, ok := s.repo.(repo.BatchInserter); ok {
		saved, err := b.InsertAll(ctx, users)
		if err != nil {
			return saved, fmt.Errorf("bulk create: %w", err)
		}
		s.logger.Debug().Int("count", len(saved)).Msg("users bulk created")
		return saved, nil
	}

	saved := make([]*models.User, 0, len(users))
	for _, u := range users {
		su, err := s.repo.Save(ctx, u)
		if err != nil {
			return saved, fmt.Errorf("bulk create: %w", err)
		}
		saved = append(saved, su)
	}
	s.logger.Debug().Int("count", len(saved)).Msg("users bulk created")
	return saved, nil
}
