package model

import (
	"time"
)

type UserRole string

const (
	Student    UserRole = "estudiante"
	Educator   UserRole = "educador"
	Admin      UserRole = "admin"
	SuperAdmin UserRole = "super-admin"
)

// IsAdmin admin 与 super-admin 拥有全部权限
func (r UserRole) IsAdmin() bool {
	return r == Admin || r == SuperAdmin
}

// User 身份提供方用户的本地镜像，ID 为外部用户ID
// swagger:model User
type User struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"size:255" json:"name"`
	Email     string    `gorm:"size:255;index" json:"email"`
	Role      UserRole  `gorm:"size:20;default:'estudiante'" json:"role"`
	LastSeen  time.Time `json:"lastSeen"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}
