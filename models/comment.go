package models

import "time"

// Comment represents a reply to a post. In the document store comments are embedded in the
// post; the relational store keeps them in their own table keyed by PostID.
type Comment struct {
	ID         string    `gorm:"primaryKey;size:36" bson:"_id" json:"_id"`
	PostID     string    `gorm:"index;size:32;not null" bson:"-" json:"-"`
	Text       string    `gorm:"type:text;not null" bson:"text" json:"text"`
	PostedByID string    `gorm:"index;size:32;not null" bson:"postedBy" json:"-"`
	PostedBy   *Author   `gorm:"-" bson:"-" json:"postedBy"`
	Created    time.Time `bson:"created" json:"created"`
}
