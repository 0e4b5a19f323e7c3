package models

import "time"

// Draft is a user's unpublished note, synced from the editor. Images are the
// already-uploaded object URLs only; local pending uploads never reach the
// server.
type Draft struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id" json:"_id"`
	UserID    int64     `gorm:"not null;index;column:user_id" json:"-"`
	Body      string    `gorm:"type:text;not null;default:'';column:body" json:"body"`
	Tags      string    `gorm:"type:varchar(255);not null;default:'';column:tags" json:"tags,omitempty"`
	Images    []string  `gorm:"serializer:json;type:jsonb;column:images" json:"images,omitempty"`
	CreatedAt time.Time `gorm:"not null;column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at" json:"updatedAt"`
}

// TableName specifies the table name for Draft
func (Draft) TableName() string {
	return "drafts"
}
