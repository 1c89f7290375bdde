// Package session is the durable ledger mapping issued token pairs to
// revocable session rows. Revocation here always wins over token signature
// validity: a refresh token whose row is gone is dead, however fresh its
// embedded expiry.
package session

import (
	"errors"
	"strings"
	"time"

	"github.com/pgdeck/pgdeck/internal/models"
	"gorm.io/gorm"
)

// Window is the hard refresh-eligibility window. It is reset on every
// rotation and is independent of any token's own embedded expiry.
const Window = 7 * 24 * time.Hour

// Create inserts a session row for a fresh login or registration.
func Create(db *gorm.DB, userID, accessToken, refreshToken, ip, userAgent string) (*models.SessionModel, error) {
	s := &models.SessionModel{
		UserID:       userID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		IPAddress:    strings.TrimSpace(ip),
		UserAgent:    strings.TrimSpace(userAgent),
		ExpiresAt:    time.Now().Add(Window),
	}
	if err := db.Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// Rotate replaces the tokens on an existing row and renews its window.
// The row id stays stable across the whole session lifetime.
func Rotate(db *gorm.DB, sessionID, newAccessToken, newRefreshToken string) error {
	res := db.Model(&models.SessionModel{}).
		Where("id = ?", sessionID).
		Updates(map[string]interface{}{
			"access_token":  newAccessToken,
			"refresh_token": newRefreshToken,
			"expires_at":    time.Now().Add(Window),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindActiveByRefreshToken returns the session backing refreshToken, but only
// while its window has not elapsed. Returns nil without error when absent.
func FindActiveByRefreshToken(db *gorm.DB, refreshToken, userID string) (*models.SessionModel, error) {
	var s models.SessionModel
	err := db.Where("refresh_token = ? AND user_id = ? AND expires_at > ?", refreshToken, userID, time.Now()).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// RevokeOne deletes the session(s) matching both user and access token.
// Idempotent: zero matches is not an error.
func RevokeOne(db *gorm.DB, userID, accessToken string) error {
	return db.Where("user_id = ? AND access_token = ?", userID, accessToken).
		Delete(&models.SessionModel{}).Error
}

// RevokeByID deletes one session row by id, scoped to the user. Idempotent.
func RevokeByID(db *gorm.DB, userID, sessionID string) error {
	return db.Where("id = ? AND user_id = ?", sessionID, userID).
		Delete(&models.SessionModel{}).Error
}

// RevokeAll deletes every session row for the user.
func RevokeAll(db *gorm.DB, userID string) error {
	return db.Where("user_id = ?", userID).Delete(&models.SessionModel{}).Error
}

// ListActive returns the user's live sessions, newest first.
func ListActive(db *gorm.DB, userID string) ([]models.SessionModel, error) {
	var sessions []models.SessionModel
	err := db.Where("user_id = ? AND expires_at > ?", userID, time.Now()).
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// SweepExpired deletes rows whose window has elapsed and reports how many.
// Pure delete-where: safe to run concurrently with itself at any cadence.
func SweepExpired(db *gorm.DB) (int64, error) {
	res := db.Unscoped().Where("expires_at < ?", time.Now()).Delete(&models.SessionModel{})
	return res.RowsAffected, res.Error
}
