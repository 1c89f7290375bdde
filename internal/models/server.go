package models

import "time"

// ServerEnv tags a registered PostgreSQL server by deployment environment.
type ServerEnv string

const (
	EnvProduction ServerEnv = "production"
	EnvStaging    ServerEnv = "staging"
	EnvDevelop    ServerEnv = "development"
)

// ServerModel is one registered PostgreSQL instance in the fleet inventory.
// Credentials are for the console's monitoring role, not a superuser.
type ServerModel struct {
	Base
	Name        string     `json:"name"        gorm:"uniqueIndex;not null"`
	Host        string     `json:"host"        gorm:"not null"`
	Port        int        `json:"port"        gorm:"not null;default:5432"`
	Database    string     `json:"database"    gorm:"not null;default:postgres"`
	Username    string     `json:"username"    gorm:"not null"`
	Password    string     `json:"-"           gorm:"type:text"`
	SSLMode     string     `json:"ssl_mode"    gorm:"default:prefer"`
	Environment ServerEnv  `json:"environment" gorm:"type:varchar(16);index"`
	Description string     `json:"description" gorm:"type:text"`
	LastSeenAt  *time.Time `json:"last_seen_at"`
	LastVersion string     `json:"last_version"`
}

func (ServerModel) TableName() string { return "servers" }
