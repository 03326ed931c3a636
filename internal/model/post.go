package model

import (
	"time"
)

// Post 文章主体
// DeletedAt 为软删除标记：非空即视为已删除，查询侧自行过滤
// Slug 全局唯一（含已软删除的行），防止删除后复用引发并发冲突
type Post struct {
	ID        uint64     `gorm:"primaryKey"`
	UserID    uint64     `gorm:"not null;index:idx_posts_user_id" json:"user_id"`
	Title     string     `gorm:"type:varchar(255);not null" json:"title"`
	Slug      string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_slug" json:"slug"`
	Content   string     `gorm:"not null" json:"content"`
	Summary   *string    `gorm:"type:varchar(500)" json:"summary"`
	Published bool       `gorm:"type:tinyint(1);not null;default:0" json:"published"`
	CoverURL  *string    `gorm:"type:varchar(512)" json:"cover_url"`
	ViewCount int64      `gorm:"not null;default:0" json:"view_count"`
	DeletedAt *time.Time `gorm:"index:idx_posts_deleted_at" json:"deleted_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// 关联关系
	User User  `gorm:"foreignKey:UserID;references:ID"`
	Tags []Tag `gorm:"many2many:post_tags"`
}

func (Post) TableName() string {
	return "posts"
}
