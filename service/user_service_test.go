package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/users/db"
	"github.com/Skryldev/users/migrations"
	"github.com/Skryldev/users/models"
	"github.com/Skryldev/users/repo"
	"github.com/Skryldev/users/service"
)

var now = time.Date(2024, 5, 5, 10, 0, 0, 0, time.UTC)

func newService(r repo.UserRepository) *service.UserService {
	return service.New(r, models.FixedClock{T: now}, zerolog.Nop())
}

func TestCreateUser_StampsClock(t *testing.T) {
	svc := newService(repo.NewMemoryUserRepository())

	u, err := svc.CreateUser(context.Background(), "Alice", "alice@example.com")
	require.NoError(t, err)

	assert.NotZero(t, u.ID)
	assert.True(t, u.Active)
	assert.True(t, u.CreatedAt.Equal(now))
}

func TestCreateUser_NoValidation(t *testing.T) {
	svc := newService(repo.NewMemoryUserRepository())

	u, err := svc.CreateUser(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "", u.Name)
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	svc := newService(repo.NewMemoryUserRepository())
	u, err := svc.CreateUser(ctx, "Bob", "bob@example.com")
	require.NoError(t, err)

	deleted, err := svc.DeleteUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.DeleteUser(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, deleted, "absent user reports false, not an error")
}

func TestFindByID_Absent(t *testing.T) {
	svc := newService(repo.NewMemoryUserRepository())

	got, err := svc.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, got.IsPresent())
}

func TestSetActive_AndFindActive(t *testing.T) {
	ctx := context.Background()
	svc := newService(repo.NewMemoryUserRepository())
	a, _ := svc.CreateUser(ctx, "A", "a@example.com")
	_, _ = svc.CreateUser(ctx, "B", "b@example.com")

	require.NoError(t, svc.SetActive(ctx, a.ID, false))

	active, err := svc.FindActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "B", active[0].Name)

	err = svc.SetActive(ctx, 999, true)
	assert.True(t, db.IsNotFound(err))
}

func TestSearchAndCount(t *testing.T) {
	ctx := context.Background()
	svc := newService(repo.NewMemoryUserRepository())
	_, _ = svc.CreateUser(ctx, "Ann Lee", "ann@example.com")
	_, _ = svc.CreateUser(ctx, "Bo Lee", "bo@example.com")
	_, _ = svc.CreateUser(ctx, "Cy", "cy@example.com")

	got, err := svc.Search(ctx, repo.UserFilter{NameContains: "lee"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	byName, err := svc.FindByName(ctx, "Cy")
	require.NoError(t, err)
	assert.Len(t, byName, 1)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestBulkCreate_Memory(t *testing.T) {
	svc := newService(repo.NewMemoryUserRepository())

	saved, err := svc.BulkCreate(context.Background(), []models.CreateUserParams{
		{Name: "Dave", Email: "dave@example.com"},
		{Name: "Eve", Email: "eve@example.com"},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "Dave", saved[0].Name)
	assert.True(t, saved[1].CreatedAt.Equal(now))
}

func TestBulkCreate_SQLUsesBatchInserter(t *testing.T) {
	d, err := db.Open(db.Config{DSN: ":memory:", DriverName: "sqlite3", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	require.NoError(t, migrations.Up(d, zerolog.Nop()))

	svc := newService(repo.NewSQLUserRepository(d, db.SQLite))
	saved, err := svc.BulkCreate(context.Background(), []models.CreateUserParams{
		{Name: "Frank", Email: "frank@example.com"},
		{Name: "Grace", Email: "grace@example.com"},
		{Name: "Hank", Email: "hank@example.com"},
	})
	require.NoError(t, err)
	require.Len(t, saved, 3)

	all, err := svc.FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

// racedRepo reports the user as present but loses the delete to another
// caller.
type racedRepo struct {
	repo.UserRepository
}

func (racedRepo) ExistsByID(context.Context, int64) (bool, error) {
	return true, nil
}

func (racedRepo) DeleteByID(_ context.Context, id int64) error {
	return fmt.Errorf("repo/user: delete %d: %w", id, db.ErrNotFound)
}

func TestDeleteUser_LostRaceReportsFalse(t *testing.T) {
	svc := newService(racedRepo{UserRepository: repo.NewMemoryUserRepository()})

	deleted, err := svc.DeleteUser(context.Background(), 3)
	require.NoError(t, err)
	assert.False(t, deleted)
}

// failingRepo fails every call with the same error.
type failingRepo struct {
	repo.UserRepository
	err error
}

func (f failingRepo) Save(context.Context, *models.User) (*models.User, error) {
	return nil, f.err
}

func (f failingRepo) DeleteByID(context.Context, int64) error {
	return f.err
}

func TestErrorsPropagate(t *testing.T) {
	boom := errors.New("storage down")
	svc := newService(failingRepo{err: boom})
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "x", "y")
	assert.ErrorIs(t, err, boom)

	_, err = svc.DeleteUser(ctx, 1)
	assert.ErrorIs(t, err, boom)

	saved, err := svc.BulkCreate(ctx, []models.CreateUserParams{{Name: "a"}})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, saved)
}
