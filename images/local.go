package images

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/connectbuzz/connectbuzz/models"
)

// LocalStore writes images under a directory served statically at baseURL.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates root if needed.
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root is the directory images are written to.
func (s *LocalStore) Root() string {
	return s.root
}

// Upload saves r as <yyyy>/<mm>/<dd>/<uuid>_<name>. The relative path is the public id.
func (s *LocalStore) Upload(ctx context.Context, filename string, r io.Reader) (models.Image, error) {
	if err := ctx.Err(); err != nil {
		return models.Image{}, err
	}
	now := time.Now()
	dir := path.Join(now.Format("2006"), now.Format("01"), now.Format("02"))
	if err := os.MkdirAll(filepath.Join(s.root, filepath.FromSlash(dir)), 0o755); err != nil {
		return models.Image{}, fmt.Errorf("create upload directory: %w", err)
	}

	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "image"
	}
	publicID := path.Join(dir, uuid.NewString()+"_"+name)
	dst := filepath.Join(s.root, filepath.FromSlash(publicID))

	out, err := os.Create(dst)
	if err != nil {
		return models.Image{}, fmt.Errorf("save file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return models.Image{}, fmt.Errorf("write file: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return models.Image{}, fmt.Errorf("write file: %w", err)
	}
	return models.Image{URL: s.baseURL + "/" + publicID, PublicID: publicID}, nil
}

// Delete removes the file named by publicID. Ids escaping the root are rejected.
func (s *LocalStore) Delete(ctx context.Context, publicID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean := path.Clean("/" + publicID)[1:]
	if clean == "" || clean != publicID {
		return ErrInvalidID
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(clean)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
