package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connectbuzz/connectbuzz/models"
)

func TestGormUserCreate(t *testing.T) {
	s := newTestGormStore(t).Users
	ctx := context.Background()

	u := createTestUser(t, s, "alice")
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, models.RoleSubscriber, u.Role)
	assert.False(t, u.CreatedAt.IsZero())
	assert.Empty(t, u.Following)

	dup := &models.User{Name: "other", Email: "alice@example.com", Username: "other"}
	assert.ErrorIs(t, s.Create(ctx, dup), ErrDuplicate)

	dup = &models.User{Name: "other", Email: "other@example.com", Username: "alice"}
	assert.ErrorIs(t, s.Create(ctx, dup), ErrDuplicate)
}

func TestGormUserFind(t *testing.T) {
	s := newTestGormStore(t).Users
	ctx := context.Background()
	u := createTestUser(t, s, "bob")

	got, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", got.Email)

	got, err = s.FindByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = s.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormUserUpdate(t *testing.T) {
	s := newTestGormStore(t).Users
	ctx := context.Background()
	u := createTestUser(t, s, "carol")
	createTestUser(t, s, "dave")

	about := "hello"
	name := "Carol C"
	img := models.Image{URL: "http://img/1.png", PublicID: "1"}
	got, err := s.Update(ctx, u.ID, UserUpdate{About: &about, Name: &name, Image: &img})
	require.NoError(t, err)
	assert.Equal(t, "hello", got.About)
	assert.Equal(t, "Carol C", got.Name)
	assert.Equal(t, img, got.Image)
	assert.Equal(t, "carol", got.Username)

	taken := "dave"
	_, err = s.Update(ctx, u.ID, UserUpdate{Username: &taken})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = s.Update(ctx, "missing", UserUpdate{About: &about})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormUserFollowUnfollow(t *testing.T) {
	s := newTestGormStore(t).Users
	ctx := context.Background()
	a := createTestUser(t, s, "a")
	b := createTestUser(t, s, "b")

	require.NoError(t, s.Follow(ctx, a.ID, b.ID))
	// following twice keeps a single edge
	require.NoError(t, s.Follow(ctx, a.ID, b.ID))

	gotA, err := s.FindByID(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := s.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, gotA.Following)
	assert.Empty(t, gotA.Followers)
	assert.Equal(t, []string{a.ID}, gotB.Followers)
	assert.Empty(t, gotB.Following)

	require.NoError(t, s.Unfollow(ctx, a.ID, b.ID))
	require.NoError(t, s.Unfollow(ctx, a.ID, b.ID))
	gotA, err = s.FindByID(ctx, a.ID)
	require.NoError(t, err)
	gotB, err = s.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, gotA.Following)
	assert.Empty(t, gotB.Followers)
}

func TestGormUserLists(t *testing.T) {
	s := newTestGormStore(t).Users
	ctx := context.Background()
	a := createTestUser(t, s, "anna")
	b := createTestUser(t, s, "ben")
	c := createTestUser(t, s, "cora")

	users, err := s.ListByIDs(ctx, []string{c.ID, a.ID, a.ID}, 0)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	users, err = s.ListByIDs(ctx, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, users)

	users, err = s.ListExcluding(ctx, []string{a.ID, b.ID}, 10)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, c.ID, users[0].ID)

	users, err = s.ListExcluding(ctx, nil, 2)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestGormUserSearch(t *testing.T) {
	s := newTestGormStore(t).Users
	ctx := context.Background()
	createTestUser(t, s, "johnny")
	createTestUser(t, s, "jane")
	createTestUser(t, s, "x_y")

	users, err := s.Search(ctx, "JOHN", 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "johnny", users[0].Username)

	users, err = s.Search(ctx, "j", 0)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	// wildcards are literal
	users, err = s.Search(ctx, "%", 0)
	require.NoError(t, err)
	assert.Empty(t, users)

	users, err = s.Search(ctx, "_", 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "x_y", users[0].Username)
}
