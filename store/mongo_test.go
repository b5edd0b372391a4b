package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/connectbuzz/connectbuzz/config"
	"github.com/connectbuzz/connectbuzz/models"
)

// newTestMongoStore connects to MONGO_TEST_URI and uses transactions when the server offers them.
func newTestMongoStore(t *testing.T) *MongoStore {
	t.Helper()
	client, db := connectTestMongo(t)
	txn, err := config.MongoTransactions(context.Background(), client)
	require.NoError(t, err)
	return openTestMongoStore(t, client, db, txn)
}

func connectTestMongo(t *testing.T) (*mongo.Client, *mongo.Database) {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database("connectbuzz_test_" + newObjectID())
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return client, db
}

func openTestMongoStore(t *testing.T, client *mongo.Client, db *mongo.Database, txn bool) *MongoStore {
	t.Helper()
	s := NewMongoStore(client, db, txn)
	require.NoError(t, s.EnsureIndexes(context.Background()))
	return s
}

func TestMongoUsers(t *testing.T) {
	s := newTestMongoStore(t)
	ctx := context.Background()
	a := createTestUser(t, s.Users, "ann")
	b := createTestUser(t, s.Users, "bo_b")

	dup := &models.User{Name: "x", Email: "ann@example.com", Username: "x"}
	assert.ErrorIs(t, s.Users.Create(ctx, dup), ErrDuplicate)

	require.NoError(t, s.Users.Follow(ctx, a.ID, b.ID))
	require.NoError(t, s.Users.Follow(ctx, a.ID, b.ID))
	gotA, err := s.Users.FindByID(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := s.Users.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, gotA.Following)
	assert.Equal(t, []string{a.ID}, gotB.Followers)

	assert.ErrorIs(t, s.Users.Follow(ctx, a.ID, "missing"), ErrNotFound)

	require.NoError(t, s.Users.Unfollow(ctx, a.ID, b.ID))
	gotA, err = s.Users.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, gotA.Following)

	found, err := s.Users.Search(ctx, "_", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, b.ID, found[0].ID)

	about := "hi"
	updated, err := s.Users.Update(ctx, a.ID, UserUpdate{About: &about})
	require.NoError(t, err)
	assert.Equal(t, "hi", updated.About)
}

func TestMongoPosts(t *testing.T) {
	s := newTestMongoStore(t)
	ctx := context.Background()
	p1 := createTestPost(t, s.Posts, "u1", "one")
	p2 := createTestPost(t, s.Posts, "u2", "two")

	list, err := s.Posts.List(ctx, nil, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, p2.ID, list[0].ID)

	got, err := s.Posts.AddLike(ctx, p1.ID, "u2")
	require.NoError(t, err)
	got, err = s.Posts.AddLike(ctx, p1.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, got.Likes)

	c := &models.Comment{Text: "nice", PostedByID: "u2"}
	got, err = s.Posts.AddComment(ctx, p1.ID, c)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	got, err = s.Posts.RemoveComment(ctx, p1.ID, c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Comments)

	deleted, err := s.Posts.Delete(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, "one", deleted.Content)
	_, err = s.Posts.FindByID(ctx, p1.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMongoFollowWithoutTransactions(t *testing.T) {
	client, db := connectTestMongo(t)
	s := openTestMongoStore(t, client, db, false)
	ctx := context.Background()
	a := createTestUser(t, s.Users, "ann")
	b := createTestUser(t, s.Users, "bob")

	require.NoError(t, s.Users.Follow(ctx, a.ID, b.ID))
	gotA, err := s.Users.FindByID(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := s.Users.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, gotA.Following)
	assert.Equal(t, []string{a.ID}, gotB.Followers)

	require.NoError(t, s.Users.Unfollow(ctx, a.ID, b.ID))
	gotB, err = s.Users.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, gotB.Followers)

	assert.ErrorIs(t, s.Users.Follow(ctx, a.ID, "missing"), ErrNotFound)

	// a missing follower undoes the followee write
	assert.ErrorIs(t, s.Users.Follow(ctx, "missing", b.ID), ErrNotFound)
	gotB, err = s.Users.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, gotB.Followers)

	// existing edges survive the undo
	require.NoError(t, s.Users.Follow(ctx, a.ID, b.ID))
	assert.ErrorIs(t, s.Users.Follow(ctx, "missing", b.ID), ErrNotFound)
	gotB, err = s.Users.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, gotB.Followers)
}
