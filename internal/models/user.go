package models

import "time"

// User represents an author account. Authentication lives outside this
// service; rows here only carry the display fields posts are joined with.
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id" json:"_id"`
	Username  string    `gorm:"type:varchar(32);not null;uniqueIndex:users_ux1;column:username" json:"username"`
	Avatar    string    `gorm:"type:varchar(1024);not null;default:'';column:avatar" json:"avatar"`
	CreatedAt time.Time `gorm:"not null;column:created_at" json:"-"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}
