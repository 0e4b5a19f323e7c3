package models

import (
	"database/sql"
	"time"
)

// Cover ratio classes, derived from the first image's aspect ratio at write
// time. CoverRatioNone iff the post has no images.
const (
	CoverRatioLandscape = "landscape"
	CoverRatioPortrait  = "portrait"
	CoverRatioSquare    = "square"
	CoverRatioNone      = "none"
)

// Aspect ratio thresholds: wider than 1.2 is landscape, narrower than 0.8
// is portrait, anything between counts as square.
const (
	LandscapeMinRatio = 1.2
	PortraitMaxRatio  = 0.8
)

// Post represents a published note.
type Post struct {
	ID          int64         `gorm:"primaryKey;autoIncrement;column:id"`
	AuthorID    int64         `gorm:"not null;index;column:author_id"`
	Body        string        `gorm:"type:text;not null;column:body"`
	BodyPreview string        `gorm:"type:text;not null;default:'';column:body_preview"`
	CoverRatio  string        `gorm:"type:varchar(16);not null;default:'none';column:cover_ratio"`
	TopicID     sql.NullInt64 `gorm:"index;column:topic_id"`
	CreatedAt   time.Time     `gorm:"not null;index:posts_created_id_ix,priority:1,sort:desc;column:created_at"`
	UpdatedAt   time.Time     `gorm:"not null;column:updated_at"`

	// Relationships
	Author *User       `gorm:"foreignKey:AuthorID;references:ID"`
	Topic  *Topic      `gorm:"foreignKey:TopicID;references:ID"`
	Tags   []Tag       `gorm:"many2many:post_tags;"`
	Images []PostImage `gorm:"foreignKey:PostID;references:ID"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "posts"
}

// PostImage is one image of a post's ordered image set.
type PostImage struct {
	ID       int64  `gorm:"primaryKey;autoIncrement;column:id"`
	PostID   int64  `gorm:"not null;index;column:post_id"`
	Position int    `gorm:"not null;column:position"`
	URL      string `gorm:"type:varchar(1024);not null;column:url"`
	Width    int    `gorm:"not null;default:0;column:width"`
	Height   int    `gorm:"not null;default:0;column:height"`
}

// TableName specifies the table name for PostImage
func (PostImage) TableName() string {
	return "post_images"
}

// CoverRatioFor classifies an image's aspect ratio. Zero dimensions cannot
// be classified and fall back to CoverRatioNone.
func CoverRatioFor(width, height int) string {
	if width == 0 || height == 0 {
		return CoverRatioNone
	}
	ratio := float64(width) / float64(height)
	switch {
	case ratio > LandscapeMinRatio:
		return CoverRatioLandscape
	case ratio < PortraitMaxRatio:
		return CoverRatioPortrait
	default:
		return CoverRatioSquare
	}
}
