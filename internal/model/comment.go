package model

import (
	"time"
)

type Comment struct {
	ID        uint64     `gorm:"primaryKey"`
	PostID    uint64     `gorm:"not null;index:idx_comments_post_id" json:"post_id"`
	UserID    uint64     `gorm:"not null;index:idx_comments_user_id" json:"user_id"`
	Content   string     `gorm:"type:varchar(1000);not null" json:"content"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// 关联关系
	User User `gorm:"foreignKey:UserID;references:ID"`
	Post Post `gorm:"foreignKey:PostID;references:ID"`
}

func (Comment) TableName() string {
	return "comments"
}
