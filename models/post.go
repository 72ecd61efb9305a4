package models

import "time"

// Post is authored content. GroupID is nullable: deleting a group keeps its
// posts and clears the reference.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	GroupID   *uint     `gorm:"index" json:"group_id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	ImageURL  string    `gorm:"size:512" json:"image_url"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Group     *Group    `gorm:"constraint:OnDelete:SET NULL;" json:"group,omitempty"`
	Comments  []Comment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments,omitempty"`
}
