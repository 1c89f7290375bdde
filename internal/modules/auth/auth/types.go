package auth

import (
	"errors"
	"fmt"
	"time"
)

type RegisterDTO struct {
	Email     string `json:"email"      binding:"required,email"`
	Password  string `json:"password"   binding:"required,min=8"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type LoginDTO struct {
	Email      string `json:"email"       binding:"required"`
	Password   string `json:"password"    binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

type RefreshDTO struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenResponse is the single response shape for register, login and refresh.
type TokenResponse struct {
	User         *UserView `json:"user,omitempty"`
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int       `json:"expires_in"`
}

// UserView is the safe projection of a user, shared by every endpoint that
// returns one. It never carries the password hash.
type UserView struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

var (
	// errInvalidCredentials deliberately covers every login failure mode so
	// responses do not disclose whether the email exists.
	errInvalidCredentials = errors.New("invalid email or password")
	errEmailTaken         = errors.New("an account with this email already exists")
	errInvalidRefresh     = errors.New("invalid or expired refresh token")
)

// lockedError carries the remaining lockout time; its message is the one
// intentional disclosure in the error taxonomy.
type lockedError struct{ remaining time.Duration }

func (e lockedError) Error() string {
	minutes := int(e.remaining.Minutes())
	if e.remaining > time.Duration(minutes)*time.Minute {
		minutes++ // round up
	}
	if minutes <= 1 {
		return "account is locked, try again in 1 minute"
	}
	return fmt.Sprintf("account is locked, try again in %d minutes", minutes)
}
