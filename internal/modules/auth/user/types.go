package user

import (
	"errors"
	"time"

	"github.com/pgdeck/pgdeck/internal/models"
)

type UpdateProfileDTO struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password"     binding:"required,min=8"`
}

type roleView struct {
	Role        string     `json:"role"`
	Permissions []string   `json:"permissions"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// profileResponse is the full authenticated projection.
type profileResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Status      string     `json:"status"`
	MFAEnabled  bool       `json:"mfa_enabled"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
	Roles       []roleView `json:"roles"`
}

func toProfileResponse(u *models.UserModel) *profileResponse {
	roles := make([]roleView, len(u.Roles))
	for i, r := range u.Roles {
		roles[i] = roleView{Role: r.Role, Permissions: r.Permissions, ExpiresAt: r.ExpiresAt}
	}
	return &profileResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Status:      string(u.Status),
		MFAEnabled:  u.MFAEnabled,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		Roles:       roles,
	}
}

var (
	errUserNotFound  = errors.New("user not found")
	errWrongPassword = errors.New("current password is incorrect")
)
