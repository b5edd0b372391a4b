package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connectbuzz/connectbuzz/models"
)

func createTestPost(t *testing.T, s PostStore, authorID, content string) *models.Post {
	t.Helper()
	p := &models.Post{Content: content, PostedByID: authorID}
	require.NoError(t, s.Create(context.Background(), p))
	return p
}

func TestGormPostCreateFind(t *testing.T) {
	st := newTestGormStore(t)
	ctx := context.Background()
	u := createTestUser(t, st.Users, "poster")

	p := createTestPost(t, st.Posts, u.ID, "hello world")
	assert.NotEmpty(t, p.ID)
	assert.Empty(t, p.Likes)
	assert.Empty(t, p.Comments)

	got, err := st.Posts.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got.Content)
	assert.Equal(t, u.ID, got.PostedByID)
	assert.NotNil(t, got.Likes)
	assert.NotNil(t, got.Comments)

	_, err = st.Posts.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormPostUpdate(t *testing.T) {
	st := newTestGormStore(t)
	ctx := context.Background()
	p := createTestPost(t, st.Posts, "u1", "before")

	content := "after"
	img := models.Image{URL: "http://img/x.png", PublicID: "x"}
	got, err := st.Posts.Update(ctx, p.ID, PostUpdate{Content: &content, Image: &img})
	require.NoError(t, err)
	assert.Equal(t, "after", got.Content)
	assert.Equal(t, img, got.Image)

	_, err = st.Posts.Update(ctx, "missing", PostUpdate{Content: &content})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormPostList(t *testing.T) {
	st := newTestGormStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		author := "u1"
		if i%2 == 1 {
			author = "u2"
		}
		ids = append(ids, createTestPost(t, st.Posts, author, fmt.Sprintf("post %d", i)).ID)
	}

	all, err := st.Posts.List(ctx, nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, ids[4], all[0].ID)
	assert.Equal(t, ids[0], all[4].ID)

	page, err := st.Posts.List(ctx, nil, 3, 3)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[1], page[0].ID)

	mine, err := st.Posts.List(ctx, []string{"u2"}, 0, 10)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, ids[3], mine[0].ID)

	none, err := st.Posts.List(ctx, []string{}, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	n, err := st.Posts.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
}

func TestGormPostLikes(t *testing.T) {
	st := newTestGormStore(t)
	ctx := context.Background()
	p := createTestPost(t, st.Posts, "u1", "like me")

	got, err := st.Posts.AddLike(ctx, p.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, got.Likes)

	got, err = st.Posts.AddLike(ctx, p.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, got.Likes)

	got, err = st.Posts.RemoveLike(ctx, p.ID, "u2")
	require.NoError(t, err)
	assert.Empty(t, got.Likes)

	got, err = st.Posts.RemoveLike(ctx, p.ID, "u2")
	require.NoError(t, err)
	assert.Empty(t, got.Likes)

	_, err = st.Posts.AddLike(ctx, "missing", "u2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormPostComments(t *testing.T) {
	st := newTestGormStore(t)
	ctx := context.Background()
	p := createTestPost(t, st.Posts, "u1", "comment me")

	c := &models.Comment{Text: "first", PostedByID: "u2"}
	got, err := st.Posts.AddComment(ctx, p.ID, c)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "first", got.Comments[0].Text)
	assert.Equal(t, []string{"u1", "u2"}, got.AuthorIDs())

	got, err = st.Posts.AddComment(ctx, p.ID, &models.Comment{Text: "second", PostedByID: "u3"})
	require.NoError(t, err)
	require.Len(t, got.Comments, 2)
	assert.Equal(t, "second", got.Comments[1].Text)

	got, err = st.Posts.RemoveComment(ctx, p.ID, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "second", got.Comments[0].Text)

	_, err = st.Posts.AddComment(ctx, "missing", &models.Comment{Text: "x", PostedByID: "u2"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormPostDelete(t *testing.T) {
	st := newTestGormStore(t)
	ctx := context.Background()
	p := createTestPost(t, st.Posts, "u1", "bye")
	_, err := st.Posts.AddLike(ctx, p.ID, "u2")
	require.NoError(t, err)
	_, err = st.Posts.AddComment(ctx, p.ID, &models.Comment{Text: "c", PostedByID: "u2"})
	require.NoError(t, err)

	deleted, err := st.Posts.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "bye", deleted.Content)
	assert.Len(t, deleted.Likes, 1)

	_, err = st.Posts.FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.Posts.Delete(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := st.Posts.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
