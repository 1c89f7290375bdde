package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/pgdeck/pgdeck/internal/models"
	jwtpkg "github.com/pgdeck/pgdeck/internal/pkg/jwt"
	sessionpkg "github.com/pgdeck/pgdeck/internal/pkg/session"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Service orchestrates registration, login with lockout, token refresh and
// session revocation. It holds no state of its own between requests; all
// lockout and session state lives in the store.
type Service struct {
	db              *gorm.DB
	bcryptCost      int
	maxLoginRetries int
	lockoutWindow   time.Duration
}

type ServiceOption func(*Service)

// WithLockoutPolicy overrides the failed-attempt threshold and lock window.
func WithLockoutPolicy(maxRetries int, window time.Duration) ServiceOption {
	return func(s *Service) {
		if maxRetries > 0 {
			s.maxLoginRetries = maxRetries
		}
		if window > 0 {
			s.lockoutWindow = window
		}
	}
}

// WithBcryptCost overrides the password hashing cost factor.
func WithBcryptCost(cost int) ServiceOption {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

func NewService(db *gorm.DB, opts ...ServiceOption) *Service {
	s := &Service{
		db:              db,
		bcryptCost:      12,
		maxLoginRetries: 5,
		lockoutWindow:   15 * time.Minute,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register creates an ACTIVE user, issues a token pair and opens a session.
func (s *Service) Register(dto *RegisterDTO, ip, userAgent string) (*TokenResponse, error) {
	email := normalizeEmail(dto.Email)

	var count int64
	if err := s.db.Model(&models.UserModel{}).
		Where("LOWER(email) = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	hashStr := string(hash)
	u := models.UserModel{
		Email:        email,
		PasswordHash: &hashStr,
		FirstName:    strings.TrimSpace(dto.FirstName),
		LastName:     strings.TrimSpace(dto.LastName),
		Status:       models.UserActive,
	}
	// The unique index on email is the real guard; the count above only
	// exists to answer the common case without an insert attempt. Two
	// concurrent registrations can both pass the count, so the index error
	// still maps to the taken-email answer.
	if err := s.db.Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errEmailTaken
		}
		return nil, err
	}

	return s.openSession(&u, false, ip, userAgent)
}

// Login authenticates by email and password. Every failure mode except an
// active lockout collapses to errInvalidCredentials. The lockout check runs
// after existence but before password verification, so a locked account
// reports "locked" even for a correct password.
func (s *Service) Login(dto *LoginDTO, ip, userAgent string) (*TokenResponse, error) {
	var u models.UserModel
	err := s.db.Where("LOWER(email) = ?", normalizeEmail(dto.Email)).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	now := time.Now()
	if u.LockedUntil != nil && u.LockedUntil.After(now) {
		return nil, lockedError{remaining: time.Until(*u.LockedUntil)}
	}
	if u.Status != models.UserActive && u.Status != models.UserLocked {
		return nil, errInvalidCredentials
	}
	if u.PasswordHash == nil {
		// Federated-only account, no local credential to verify.
		return nil, errInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(dto.Password)); err != nil {
		if regErr := s.registerFailedAttempt(&u, now); regErr != nil {
			return nil, regErr
		}
		return nil, errInvalidCredentials
	}

	// Successful login clears lockout bookkeeping in one update.
	updates := map[string]interface{}{
		"failed_login_attempts": 0,
		"locked_until":          nil,
		"status":                models.UserActive,
		"last_login_at":         now,
	}
	if err := s.db.Model(&u).Updates(updates).Error; err != nil {
		return nil, err
	}
	u.LastLoginAt = &now

	return s.openSession(&u, dto.RememberMe, ip, userAgent)
}

// registerFailedAttempt increments the counter and, at the threshold, locks
// the account in the same row update. Two racing failures may both write
// threshold+1; the lock still triggers and its duration is idempotent.
func (s *Service) registerFailedAttempt(u *models.UserModel, now time.Time) error {
	attempts := u.FailedLoginAttempts + 1
	updates := map[string]interface{}{"failed_login_attempts": attempts}
	if attempts >= s.maxLoginRetries {
		updates["status"] = models.UserLocked
		updates["locked_until"] = now.Add(s.lockoutWindow)
	}
	return s.db.Model(u).Updates(updates).Error
}

// Refresh exchanges a valid refresh token for a new pair, rotating the
// backing session row in place. A revoked or swept session rejects the token
// regardless of its signature validity. Refresh never extends TTLs beyond the
// defaults, whatever the original login's remember-me choice.
func (s *Service) Refresh(refreshToken string) (*TokenResponse, error) {
	claims, err := jwtpkg.ParseRefresh(refreshToken)
	if err != nil {
		return nil, errInvalidRefresh
	}

	sess, err := sessionpkg.FindActiveByRefreshToken(s.db, refreshToken, claims.Subject)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, errInvalidRefresh
	}

	var u models.UserModel
	if err := s.db.First(&u, "id = ?", claims.Subject).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidRefresh
		}
		return nil, err
	}
	if u.Status != models.UserActive {
		return nil, errInvalidRefresh
	}

	pair, err := jwtpkg.IssuePair(u.ID, u.Email, false)
	if err != nil {
		return nil, err
	}
	if err := sessionpkg.Rotate(s.db, sess.ID, pair.AccessToken, pair.RefreshToken); err != nil {
		return nil, err
	}

	return &TokenResponse{
		User:         toUserView(&u),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

// Logout deletes the session matching this access token. Idempotent.
func (s *Service) Logout(userID, accessToken string) error {
	return sessionpkg.RevokeOne(s.db, userID, accessToken)
}

// LogoutAll deletes every session for the user.
func (s *Service) LogoutAll(userID string) error {
	return sessionpkg.RevokeAll(s.db, userID)
}

// ListSessions returns the user's live sessions for the sessions screen.
func (s *Service) ListSessions(userID string) ([]models.SessionModel, error) {
	return sessionpkg.ListActive(s.db, userID)
}

// RevokeSession deletes one session row by id. Idempotent.
func (s *Service) RevokeSession(userID, sessionID string) error {
	return sessionpkg.RevokeByID(s.db, userID, sessionID)
}

func (s *Service) openSession(u *models.UserModel, rememberMe bool, ip, userAgent string) (*TokenResponse, error) {
	pair, err := jwtpkg.IssuePair(u.ID, u.Email, rememberMe)
	if err != nil {
		return nil, err
	}
	if _, err := sessionpkg.Create(s.db, u.ID, pair.AccessToken, pair.RefreshToken, ip, userAgent); err != nil {
		return nil, err
	}
	return &TokenResponse{
		User:         toUserView(u),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

func toUserView(u *models.UserModel) *UserView {
	return &UserView{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Status:      string(u.Status),
		LastLoginAt: u.LastLoginAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
