package models

import "time"

// Post is a piece of content published by a user.
type Post struct {
	ID         string    `gorm:"primaryKey;size:32" bson:"_id" json:"_id"`
	Content    string    `gorm:"type:text;not null" bson:"content" json:"content"`
	PostedByID string    `gorm:"index;size:32;not null" bson:"postedBy" json:"-"`
	PostedBy   *Author   `gorm:"-" bson:"-" json:"postedBy"`
	Image      Image     `gorm:"embedded;embeddedPrefix:image_" bson:"image,omitempty" json:"image,omitempty"`
	Likes      []string  `gorm:"-" bson:"likes" json:"likes"`
	Comments   []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" bson:"comments" json:"comments"`
	CreatedAt  time.Time `gorm:"index" bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt"`
}

// AuthorIDs returns the ids of the post owner and every commenter.
func (p *Post) AuthorIDs() []string {
	ids := make([]string, 0, len(p.Comments)+1)
	ids = append(ids, p.PostedByID)
	for _, c := range p.Comments {
		ids = append(ids, c.PostedByID)
	}
	return ids
}

// PostLike is one row of a post's like set in the relational store.
type PostLike struct {
	PostID    string `gorm:"primaryKey;size:32"`
	UserID    string `gorm:"primaryKey;size:32;index"`
	CreatedAt time.Time
}
