package models

import "time"

// BackupStatus is the outcome of one backup run.
type BackupStatus string

const (
	BackupRunning   BackupStatus = "running"
	BackupCompleted BackupStatus = "completed"
	BackupFailed    BackupStatus = "failed"
)

// BackupRecord is one pg_dump run against a registered server.
type BackupRecord struct {
	Base
	ServerID   string       `json:"server_id"  gorm:"index;not null"`
	Filename   string       `json:"filename"   gorm:"not null"`
	SizeBytes  int64        `json:"size_bytes"`
	Status     BackupStatus `json:"status"     gorm:"type:varchar(16);index"`
	Error      string       `json:"error,omitempty" gorm:"type:text"`
	S3Key      string       `json:"s3_key,omitempty"`
	FinishedAt *time.Time   `json:"finished_at"`
}

func (BackupRecord) TableName() string { return "backup_records" }
