package models

import "time"

// UserStatus is the lifecycle state of a console account.
type UserStatus string

const (
	UserActive    UserStatus = "ACTIVE"
	UserLocked    UserStatus = "LOCKED"
	UserInactive  UserStatus = "INACTIVE"
	UserSuspended UserStatus = "SUSPENDED"
)

// UserModel represents a console operator account.
//
// PasswordHash is nullable: accounts provisioned through an external identity
// provider carry no local credential. MFA fields are stored but not enforced.
type UserModel struct {
	Base
	Email               string      `json:"email"      gorm:"uniqueIndex;not null"`
	PasswordHash        *string     `json:"-"          gorm:"type:text"`
	FirstName           string      `json:"first_name"`
	LastName            string      `json:"last_name"`
	Status              UserStatus  `json:"status"     gorm:"type:varchar(16);default:ACTIVE;index"`
	FailedLoginAttempts int         `json:"-"          gorm:"not null;default:0"`
	LockedUntil         *time.Time  `json:"-"`
	LastLoginAt         *time.Time  `json:"last_login_at"`
	MFAEnabled          bool        `json:"mfa_enabled"`
	MFASecret           string      `json:"-"          gorm:"type:text"`
	Roles               []RoleGrant `json:"roles,omitempty" gorm:"foreignKey:UserID"`
}

func (UserModel) TableName() string { return "users" }

// RoleGrant assigns a named role to a user, optionally until expires_at.
type RoleGrant struct {
	Base
	UserID      string     `json:"-"           gorm:"index;not null"`
	Role        string     `json:"role"        gorm:"not null"`
	Permissions []string   `json:"permissions" gorm:"type:text;serializer:json"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

func (RoleGrant) TableName() string { return "role_grants" }
