package models

import "time"

// StockThreshold stores the low-stock alert level for a product code, plus an
// optional display name preferred over whatever the receipts carry.
type StockThreshold struct {
	ProductCode   string    `gorm:"column:product_code;primaryKey"`
	Threshold     int       `gorm:"column:threshold;not null;default:0"`
	PreferredName *string   `gorm:"column:preferred_name"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (StockThreshold) TableName() string {
	return "stock_thresholds"
}
