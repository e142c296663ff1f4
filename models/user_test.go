package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/users/models"
)

var fixed = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewUser_StampsClockAndActive(t *testing.T) {
	u := models.NewUser(models.FixedClock{T: fixed}, "Alice", "alice@example.com")

	assert.True(t, u.Active)
	assert.True(t, u.CreatedAt.Equal(fixed))
	assert.Equal(t, "Alice", u.Name)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.False(t, u.HasID())
}

func TestZeroUser_LeavesDefaults(t *testing.T) {
	var u models.User

	assert.False(t, u.Active)
	assert.True(t, u.CreatedAt.IsZero())
	assert.Zero(t, u.ID)
}

func TestUser_FieldsRoundTrip(t *testing.T) {
	u := &models.User{}
	u.ID = 7
	u.Name = "first"
	u.Name = "second"
	u.Email = "x@y"

	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, "second", u.Name)
	assert.Equal(t, "x@y", u.Email)
	assert.True(t, u.HasID())
}

func TestUser_String(t *testing.T) {
	u := &models.User{ID: 1, Name: "Bob", Email: "bob@example.com"}
	assert.Equal(t, "User{id=1, name='Bob', email='bob@example.com'}", u.String())

	u.Email = "new@example.com"
	u.ID = 2
	assert.Equal(t, "User{id=2, name='Bob', email='new@example.com'}", u.String())
}

func TestUser_ActivateDeactivate(t *testing.T) {
	u := models.NewUser(models.SystemClock{}, "a", "b")
	u.Deactivate()
	assert.False(t, u.Active)
	u.Activate()
	assert.True(t, u.Active)
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "Unknown User", (&models.User{}).DisplayName())
	assert.Equal(t, "Carol", (&models.User{Name: "Carol"}).DisplayName())
}

func TestOptional(t *testing.T) {
	some := models.Some(42)
	v, ok := some.Get()
	require.True(t, ok)
	assert.Equal(t, 42, v)
	assert.True(t, some.IsPresent())
	assert.Equal(t, 42, some.OrElse(0))
	assert.Equal(t, 42, some.MustGet())

	none := models.None[int]()
	_, ok = none.Get()
	assert.False(t, ok)
	assert.Equal(t, -1, none.OrElse(-1))
	assert.Panics(t, func() { none.MustGet() })
}

func TestClockFunc(t *testing.T) {
	c := models.ClockFunc(func() time.Time { return fixed })
	assert.True(t, c.Now().Equal(fixed))
	assert.Equal(t, time.UTC, models.SystemClock{}.Now().Location())
}
