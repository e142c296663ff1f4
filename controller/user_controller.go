package controller

import (
	"context"

	"github.com/Skryldev/users/models"
)

// Service is what UserController needs from the service layer.
type Service interface {
	FindAll(ctx context.Context) ([]*models.User, error)
	FindByID(ctx context.Context, id int64) (models.Optional[*models.User], error)
	CreateUser(ctx context.Context, name, email string) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) (bool, error)
	FindByName(ctx context.Context, name string) ([]*models.User, error)
}

// UserController is the entry point callers use. Every method delegates to
// the service exactly once and returns its result unchanged.
type UserController struct {
	svc Service
}

func New(svc Service) *UserController {
	return &UserController{svc: svc}
}

func (c *UserController) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	return c.svc.FindAll(ctx)
}

func (c *UserController) GetUserByID(ctx context.Context, id int64) (models.Optional[*models.User], error) {
	return c.svc.FindByID(ctx, id)
}

func (c *UserController) CreateUser(ctx context.Context, name, email string) (*models.User, error) {
	return c.svc.CreateUser(ctx, name, email)
}

func (c *UserController) DeleteUser(ctx context.Context, id int64) (bool, error) {
	return c.svc.DeleteUser(ctx, id)
}

func (c *UserController) SearchUsersByName(ctx context.Context, name string) ([]*models.User, error) {
	return c.svc.FindByName(ctx, name)
}
