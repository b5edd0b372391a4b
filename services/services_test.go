package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/connectbuzz/connectbuzz/models"
	"github.com/connectbuzz/connectbuzz/store"
	"github.com/connectbuzz/connectbuzz/utils"
)

// fakeImages records uploads and deletes in memory.
type fakeImages struct {
	mu        sync.Mutex
	uploads   []string
	deleted   []string
	failWrite bool
	failDel   bool
}

func (f *fakeImages) Upload(_ context.Context, filename string, r io.Reader) (models.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite {
		return models.Image{}, errors.New("upload refused")
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return models.Image{}, err
	}
	f.uploads = append(f.uploads, filename)
	return models.Image{URL: "http://img.test/" + filename, PublicID: filename}, nil
}

func (f *fakeImages) Delete(_ context.Context, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, publicID)
	if f.failDel {
		return errors.New("delete refused")
	}
	return nil
}

type testEnv struct {
	users    store.UserStore
	posts    store.PostStore
	tokens   *utils.TokenManager
	images   *fakeImages
	identity *IdentityService
	content  *ContentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(store.Models...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	st := store.NewGormStore(db)
	env := &testEnv{
		users:  st.Users,
		posts:  st.Posts,
		tokens: utils.NewTokenManager("test-secret", 24*time.Hour),
		images: &fakeImages{},
	}
	env.identity = NewIdentityService(env.users, env.tokens, func(email string) bool {
		return email == "admin@x.com"
	})
	env.content = NewContentService(env.posts, env.users, env.images)
	return env
}

// register creates an account and returns it loaded from the store.
func (e *testEnv) register(t *testing.T, name string) *models.User {
	t.Helper()
	email := name + "@x.com"
	require.NoError(t, e.identity.Register(context.Background(), RegisterInput{
		Name: name, Email: email, Password: "secret1", Secret: "blue",
	}))
	u, err := e.users.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	return u
}

// reload refreshes u from the store, as the auth middleware does per request.
func (e *testEnv) reload(t *testing.T, u *models.User) *models.User {
	t.Helper()
	got, err := e.users.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	return got
}

func requireKind(t *testing.T, err error, kind Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	var e *Error
	require.True(t, errors.As(err, &e), "unexpected error %v", err)
	require.Equal(t, kind, e.Kind)
	if msg != "" {
		require.Equal(t, msg, e.Message)
	}
}
