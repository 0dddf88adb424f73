package models

import "time"

// StoreSetting is a persisted key/value pair for merchant-tunable settings
// (business day rule, fee configuration). Reads fall back to config defaults
// when a key is absent.
type StoreSetting struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (StoreSetting) TableName() string {
	return "store_settings"
}
