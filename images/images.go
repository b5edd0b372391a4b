// Package images stores uploaded pictures on local disk or in Cloudinary.
package images

import (
	"errors"
	"fmt"

	"github.com/connectbuzz/connectbuzz/config"
	"github.com/connectbuzz/connectbuzz/services"
)

// ErrInvalidID is returned when a public id does not name an object of the store.
var ErrInvalidID = errors.New("invalid image id")

// New builds the store selected by IMAGE_STORE.
func New(cfg config.AppConfig) (services.ImageStore, error) {
	switch cfg.ImageStore {
	case config.ImageStoreCloudinary:
		return NewCloudinaryStore(cfg.CloudinaryName, cfg.CloudinaryKey, cfg.CloudinarySecret)
	case config.ImageStoreLocal, "":
		return NewLocalStore(cfg.UploadDir, cfg.UploadBaseURL)
	default:
		return nil, fmt.Errorf("unknown image store %q", cfg.ImageStore)
	}
}
