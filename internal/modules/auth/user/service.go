package user

import (
	"errors"
	"strings"
	"time"

	"github.com/pgdeck/pgdeck/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service struct {
	db         *gorm.DB
	bcryptCost int
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, bcryptCost: 12}
}

// GetProfile loads a user with only the role grants that are currently in
// force (no expiry, or expiry in the future).
func (s *Service) GetProfile(userID string) (*models.UserModel, error) {
	var u models.UserModel
	err := s.db.Preload("Roles", "expires_at IS NULL OR expires_at > ?", time.Now()).
		First(&u, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UpdateProfile applies the partial update and returns the fresh projection.
func (s *Service) UpdateProfile(userID string, dto *UpdateProfileDTO) (*models.UserModel, error) {
	updates := map[string]interface{}{}
	if dto.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*dto.FirstName)
	}
	if dto.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*dto.LastName)
	}
	if len(updates) > 0 {
		res := s.db.Model(&models.UserModel{}).Where("id = ?", userID).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, errUserNotFound
		}
	}
	return s.GetProfile(userID)
}

// ChangePassword verifies the current password and stores a new hash.
// Other sessions stay alive; callers wanting a clean slate follow up with
// logout-all themselves.
func (s *Service) ChangePassword(userID string, dto *ChangePasswordDTO) error {
	var u models.UserModel
	if err := s.db.First(&u, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errUserNotFound
		}
		return err
	}
	if u.PasswordHash == nil {
		return errUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(dto.CurrentPassword)); err != nil {
		return errWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.NewPassword), s.bcryptCost)
	if err != nil {
		return err
	}
	return s.db.Model(&u).Update("password_hash", string(hash)).Error
}

// ValidateUser is the bearer-token verification hook: it returns the user
// only while the account is ACTIVE, and nil (not an error) otherwise.
func (s *Service) ValidateUser(userID string) (*models.UserModel, error) {
	u, err := s.GetProfile(userID)
	if err != nil {
		if errors.Is(err, errUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if u.Status != models.UserActive {
		return nil, nil
	}
	return u, nil
}
