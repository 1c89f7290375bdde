package models

import "time"

// SessionModel backs one logical login. The row is rotated in place on each
// token refresh; ExpiresAt is the hard refresh-eligibility window, independent
// of the embedded token expiry.
type SessionModel struct {
	Base
	UserID       string    `json:"user_id"    gorm:"index;not null"`
	AccessToken  string    `json:"-"          gorm:"type:text;not null"`
	RefreshToken string    `json:"-"          gorm:"type:text;not null;index"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent" gorm:"type:text"`
	ExpiresAt    time.Time `json:"expires_at" gorm:"index;not null"`
}

func (SessionModel) TableName() string { return "sessions" }
