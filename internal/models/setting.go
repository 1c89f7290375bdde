package models

// SettingModel holds one console-wide configuration entry as raw JSON.
type SettingModel struct {
	Base
	Key   string `json:"key"   gorm:"uniqueIndex;not null"`
	Value string `json:"value" gorm:"type:text"`
}

func (SettingModel) TableName() string { return "settings" }
