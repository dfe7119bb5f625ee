package entity

import (
	"time"
)

// User 用户实体
type User struct {
	ID             string     `json:"id" gorm:"primaryKey;size:32"`
	Name           string     `json:"name" gorm:"size:64;not null"`
	Email          string     `json:"email" gorm:"size:128;not null;uniqueIndex"`
	Mobile         string     `json:"mobile" gorm:"size:20;uniqueIndex"`
	PasswordHash   string     `json:"-" gorm:"size:128;not null"`
	Role           string     `json:"role" gorm:"size:16;not null;default:customer"`
	CompanyName    string     `json:"company_name" gorm:"size:128"`
	GSTIN          string     `json:"gstin" gorm:"size:20"`
	MobileVerified bool       `json:"mobile_verified" gorm:"not null;default:false"`
	Status         string     `json:"status" gorm:"size:16;not null;default:active"`
	LastLoginAt    *time.Time `json:"last_login_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at" gorm:"index"`
}

func (User) TableName() string {
	return "mkt_users"
}

// 用户状态
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)
