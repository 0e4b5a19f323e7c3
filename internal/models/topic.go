package models

import "time"

// Topic represents a post topic. A post carries at most one topic; interest
// weights in user profiles are keyed by topic ID.
type Topic struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id" json:"_id"`
	Name      string    `gorm:"type:varchar(64);not null;uniqueIndex:topics_ux1;column:name" json:"name"`
	PostCount int64     `gorm:"not null;default:0;column:post_count" json:"-"`
	CreatedAt time.Time `gorm:"not null;column:created_at" json:"-"`
}

// TableName specifies the table name for Topic
func (Topic) TableName() string {
	return "topics"
}

// Tag represents a free-form post tag.
type Tag struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id" json:"_id"`
	Name      string    `gorm:"type:varchar(64);not null;uniqueIndex:tags_ux1;column:name" json:"name"`
	PostCount int64     `gorm:"not null;default:0;column:post_count" json:"-"`
	CreatedAt time.Time `gorm:"not null;column:created_at" json:"-"`
}

// TableName specifies the table name for Tag
func (Tag) TableName() string {
	return "tags"
}
