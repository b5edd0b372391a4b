package images

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connectbuzz/connectbuzz/config"
)

func TestLocalStoreUploadDelete(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStore(root, "/uploads/")
	require.NoError(t, err)
	ctx := context.Background()

	img, err := s.Upload(ctx, "../../cat.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(img.PublicID, "_cat.png"))
	assert.Equal(t, "/uploads/"+img.PublicID, img.URL)

	path := filepath.Join(root, filepath.FromSlash(img.PublicID))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(b))

	require.NoError(t, s.Delete(ctx, img.PublicID))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// deleting twice is fine
	require.NoError(t, s.Delete(ctx, img.PublicID))
}

func TestLocalStoreRejectsEscapes(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, s.Delete(ctx, "../etc/passwd"), ErrInvalidID)
	assert.ErrorIs(t, s.Delete(ctx, "/abs"), ErrInvalidID)
	assert.ErrorIs(t, s.Delete(ctx, ""), ErrInvalidID)
}

func TestNew(t *testing.T) {
	st, err := New(config.AppConfig{ImageStore: config.ImageStoreLocal, UploadDir: t.TempDir(), UploadBaseURL: "/u"})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, st)

	_, err = New(config.AppConfig{ImageStore: config.ImageStoreCloudinary})
	assert.Error(t, err)

	cst, err := New(config.AppConfig{
		ImageStore:       config.ImageStoreCloudinary,
		CloudinaryName:   "demo",
		CloudinaryKey:    "key",
		CloudinarySecret: "secret",
	})
	require.NoError(t, err)
	assert.IsType(t, &CloudinaryStore{}, cst)
}
