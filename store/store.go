// Package store persists users and posts. Two backends implement the same interfaces: a
// MongoDB document store and a GORM relational store (MySQL, Postgres or SQLite).
package store

import (
	"context"
	"errors"

	"github.com/connectbuzz/connectbuzz/models"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique field (email, username) collides.
	ErrDuplicate = errors.New("duplicate key")
)

// UserUpdate carries the profile fields to overwrite. Nil fields are left untouched.
type UserUpdate struct {
	Name         *string
	Username     *string
	About        *string
	PasswordHash *string
	SecretHash   *string
	Image        *models.Image
}

// IsEmpty reports whether no field is set.
func (u UserUpdate) IsEmpty() bool {
	return u.Name == nil && u.Username == nil && u.About == nil &&
		u.PasswordHash == nil && u.SecretHash == nil && u.Image == nil
}

// PostUpdate carries the post fields to overwrite. Nil fields are left untouched.
type PostUpdate struct {
	Content *string
	Image   *models.Image
}

// UserStore is the identity store.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*models.User, error)
	// Follow records followerID -> followeeID on both sides as one atomic unit.
	Follow(ctx context.Context, followerID, followeeID string) error
	// Unfollow removes followerID -> followeeID on both sides as one atomic unit.
	Unfollow(ctx context.Context, followerID, followeeID string) error
	// ListByIDs loads the given users. A limit of zero means no limit.
	ListByIDs(ctx context.Context, ids []string, limit int) ([]models.User, error)
	ListExcluding(ctx context.Context, exclude []string, limit int) ([]models.User, error)
	// Search matches the query literally and case-insensitively against name or username.
	Search(ctx context.Context, query string, limit int) ([]models.User, error)
}

// PostStore is the content store.
type PostStore interface {
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id string) (*models.Post, error)
	Update(ctx context.Context, id string, upd PostUpdate) (*models.Post, error)
	// Delete removes the post and returns it as it was before deletion.
	Delete(ctx context.Context, id string) (*models.Post, error)
	// List returns posts newest first. A nil authorIDs means every author; a limit of zero
	// means no limit.
	List(ctx context.Context, authorIDs []string, offset, limit int) ([]models.Post, error)
	AddLike(ctx context.Context, postID, userID string) (*models.Post, error)
	RemoveLike(ctx context.Context, postID, userID string) (*models.Post, error)
	AddComment(ctx context.Context, postID string, comment *models.Comment) (*models.Post, error)
	RemoveComment(ctx context.Context, postID, commentID string) (*models.Post, error)
	// Count returns an estimated number of posts.
	Count(ctx context.Context) (int64, error)
}

// UniqueStrings removes duplicate and empty values while keeping the first-seen order.
func UniqueStrings(slice []string) []string {
	keys := make(map[string]bool, len(slice))
	list := make([]string, 0, len(slice))
	for _, entry := range slice {
		if entry == "" || keys[entry] {
			continue
		}
		keys[entry] = true
		list = append(list, entry)
	}
	return list
}
