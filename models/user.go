package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	// RoleSubscriber is assigned to every new account.
	RoleSubscriber = "Subscriber"
	// RoleAdmin grants forced deletion and the admin check endpoint.
	RoleAdmin = "Admin"
)

// Image references an object held by the image store.
type Image struct {
	URL      string `gorm:"size:1024" bson:"url,omitempty" json:"url,omitempty"`
	PublicID string `gorm:"size:255" bson:"public_id,omitempty" json:"public_id,omitempty"`
}

// IsZero reports whether no image is attached.
func (i Image) IsZero() bool {
	return i.URL == "" && i.PublicID == ""
}

// User represents a member of the network. Password and secret are stored as bcrypt hashes
// and never serialized to clients.
type User struct {
	ID           string    `gorm:"primaryKey;size:32" bson:"_id" json:"_id"`
	Name         string    `gorm:"size:255;not null" bson:"name" json:"name"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" bson:"email" json:"email"`
	Username     string    `gorm:"size:64;uniqueIndex;not null" bson:"username" json:"username"`
	About        string    `gorm:"type:text" bson:"about,omitempty" json:"about,omitempty"`
	Image        Image     `gorm:"embedded;embeddedPrefix:image_" bson:"image,omitempty" json:"image,omitempty"`
	Role         string    `gorm:"size:32;default:'Subscriber'" bson:"role" json:"role"`
	PasswordHash string    `gorm:"size:255" bson:"password" json:"-"`
	SecretHash   string    `gorm:"size:255" bson:"secret" json:"-"`
	Following    []string  `gorm:"-" bson:"following" json:"following"`
	Followers    []string  `gorm:"-" bson:"followers" json:"followers"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// IsAdmin reports whether the user holds the privileged role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Author is the lightweight projection attached to posts and comments.
type Author struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Image Image  `json:"image,omitempty"`
}

// AuthorOf projects a user down to the fields exposed next to content.
func AuthorOf(u User) *Author {
	return &Author{ID: u.ID, Name: u.Name, Image: u.Image}
}

// BeforeCreate hook ensures timestamps and role are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = RoleSubscriber
	}
	return nil
}
