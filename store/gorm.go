package store

import (
	"errors"
	"strings"

	"github.com/rs/xid"
	"gorm.io/gorm"

	"github.com/connectbuzz/connectbuzz/models"
)

// Models lists every table the relational store needs migrated.
var Models = []interface{}{
	&models.User{},
	&models.Follow{},
	&models.Post{},
	&models.PostLike{},
	&models.Comment{},
}

// GormStore bundles the relational implementations of UserStore and PostStore.
type GormStore struct {
	Users *GormUserStore
	Posts *GormPostStore
}

// NewGormStore wraps an opened and migrated *gorm.DB.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		Users: &GormUserStore{db: db},
		Posts: &GormPostStore{db: db},
	}
}

func newID() string {
	return xid.New().String()
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isDuplicate(err):
		return ErrDuplicate
	default:
		return err
	}
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value")
}

// likePattern escapes LIKE wildcards so the query is matched literally.
func likePattern(q string) string {
	r := strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)
	return "%" + strings.ToLower(r.Replace(q)) + "%"
}
