package models

import "time"

// Follow is a single edge of the follow graph: FollowerID follows FolloweeID.
type Follow struct {
	FollowerID string `gorm:"primaryKey;size:32"`
	FolloweeID string `gorm:"primaryKey;size:32;index"`
	CreatedAt  time.Time
}
