package model

import (
	"time"
)

type User struct {
	ID        uint64 `gorm:"primaryKey"`
	Username  string `gorm:"type:varchar(50);not null;uniqueIndex:idx_username"`
	Email     string `gorm:"type:varchar(100);not null;uniqueIndex:idx_email"`
	Password  string `gorm:"type:varchar(255);not null"`
	IsActive  bool   `gorm:"type:tinyint(1);not null;default:1"`
	IsAdmin   bool   `gorm:"type:tinyint(1);not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Posts    []Post    `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	Comments []Comment `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}

func (User) TableName() string {
	return "users"
}
