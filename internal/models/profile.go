package models

import "time"

// Behavior actions tracked against a post.
const (
	ActionView    = "view"
	ActionLike    = "like"
	ActionCollect = "collect"
	ActionShare   = "share"
)

// InterestEntry is one weighted topic affinity. Weight stays in [0,1].
type InterestEntry struct {
	TopicID     int64     `json:"topicId"`
	Weight      float64   `json:"weight"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// BehaviorEvent is one recorded user action. TopicID is zero when the post
// had no topic at the time of the action.
type BehaviorEvent struct {
	Action    string    `json:"action"`
	PostID    int64     `json:"postId"`
	TopicID   int64     `json:"topicId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// UserProfile holds the per-user interest state driving personalized recall.
// Interests and behavior history are stored as JSONB documents and written
// back whole on save; concurrent updates for one user are last-writer-wins
// (see DESIGN.md, known race).
type UserProfile struct {
	ID              int64           `gorm:"primaryKey;autoIncrement;column:id"`
	UserID          int64           `gorm:"not null;uniqueIndex:user_profiles_ux1;column:user_id"`
	Interests       []InterestEntry `gorm:"serializer:json;type:jsonb;column:interests"`
	BehaviorHistory []BehaviorEvent `gorm:"serializer:json;type:jsonb;column:behavior_history"`
	CreatedAt       time.Time       `gorm:"not null;column:created_at"`
	UpdatedAt       time.Time       `gorm:"not null;column:updated_at"`
}

// TableName specifies the table name for UserProfile
func (UserProfile) TableName() string {
	return "user_profiles"
}
