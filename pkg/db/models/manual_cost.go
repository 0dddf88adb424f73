package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ManualCost is a merchant-entered cost override keyed by order number. It
// survives recomputation until explicitly changed.
type ManualCost struct {
	OrderNumber string          `gorm:"column:order_number;primaryKey"`
	Cost        decimal.Decimal `gorm:"column:cost;type:numeric(14,2);not null"`
	Note        *string         `gorm:"column:note"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (ManualCost) TableName() string {
	return "manual_costs"
}
