package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser     UserRole = "user"
	RoleProvider UserRole = "provider"
	RoleAdmin    UserRole = "admin"
)

// IsValid checks if the role is one of the known roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleUser, RoleProvider, RoleAdmin:
		return true
	default:
		return false
	}
}

// Account is a marketplace identity. Provider-only fields stay empty for
// other roles.
type Account struct {
	ID           uint          `json:"id" gorm:"primaryKey"`
	Name         string        `json:"name" gorm:"size:255;not null"`
	Email        string        `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string        `json:"-" gorm:"size:255;not null"` // Hidden from JSON
	Phone        string        `json:"phone" gorm:"size:20;not null"`
	Role         UserRole      `json:"role" gorm:"type:varchar(20);not null;default:'user';check:role IN ('user','provider','admin')"`
	Availability []DaySchedule `json:"availability,omitempty" gorm:"serializer:json;type:jsonb"`
	Location     *Location     `json:"location,omitempty" gorm:"serializer:json;type:jsonb"`
	CreatedAt    time.Time     `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time     `json:"updatedAt" gorm:"autoUpdateTime"`

	// Relationships
	Services []Service `json:"services,omitempty" gorm:"foreignKey:ProviderID"`
}

// TableName specifies the table name for the Account model
func (Account) TableName() string {
	return "users"
}

// BeforeCreate is a GORM hook that runs before creating an account
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.Role == "" {
		a.Role = RoleUser
	}
	a.Email = NormalizeEmail(a.Email)
	return nil
}

// IsProvider checks if the account offers services
func (a *Account) IsProvider() bool {
	return a.Role == RoleProvider
}

// IsAdmin checks if the account is an admin
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// PublicProfile returns the fields a counterparty is allowed to see.
func (a *Account) PublicProfile() *Account {
	if a == nil {
		return nil
	}
	return &Account{
		ID:    a.ID,
		Name:  a.Name,
		Email: a.Email,
		Phone: a.Phone,
		Role:  a.Role,
	}
}

// NormalizeEmail lower-cases and trims an email so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
