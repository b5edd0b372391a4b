package images

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/connectbuzz/connectbuzz/models"
)

const cloudinaryFolder = "connectbuzz"

// CloudinaryStore keeps images in a Cloudinary account.
type CloudinaryStore struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryStore(cloud, key, secret string) (*CloudinaryStore, error) {
	if cloud == "" || key == "" || secret == "" {
		return nil, errors.New("cloudinary credentials are not configured")
	}
	cld, err := cloudinary.NewFromParams(cloud, key, secret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true
	return &CloudinaryStore{cld: cld}, nil
}

func (s *CloudinaryStore) Upload(ctx context.Context, _ string, r io.Reader) (models.Image, error) {
	res, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{Folder: cloudinaryFolder})
	if err != nil {
		return models.Image{}, err
	}
	if res.Error.Message != "" {
		return models.Image{}, errors.New(res.Error.Message)
	}
	return models.Image{URL: res.SecureURL, PublicID: res.PublicID}, nil
}

func (s *CloudinaryStore) Delete(ctx context.Context, publicID string) error {
	res, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return err
	}
	if res.Error.Message != "" {
		return errors.New(res.Error.Message)
	}
	if res.Result != "ok" && res.Result != "not found" {
		return fmt.Errorf("cloudinary destroy: %s", res.Result)
	}
	return nil
}
