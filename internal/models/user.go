// internal/models/user.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Username         string     `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Email            string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash     string     `json:"-" gorm:"size:255;not null"`
	FullName         string     `json:"full_name" gorm:"size:120"`
	Role             UserRole   `json:"role" gorm:"type:varchar(20);default:'customer';index"`
	IsActive         bool       `json:"is_active" gorm:"default:false"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`

	Orders []Order `json:"orders,omitempty" gorm:"foreignKey:UserID"`
}

func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func (u *User) IsStaff() bool {
	return u.Role == UserRoleStaff
}

// DisplayName is what receipts and gateway forms show for the customer.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
