package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockReceipt is one inbound cost layer: a delivery of stock retaining its
// own unit cost until fully consumed. QtyRemaining only ever decreases and
// never drops below zero or exceeds QtyReceived.
type StockReceipt struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductCode  string          `gorm:"column:product_code;not null;index"`
	ProductName  *string         `gorm:"column:product_name"`
	ReceivedAt   time.Time       `gorm:"column:received_at;not null"`
	UnitCost     decimal.Decimal `gorm:"column:unit_cost;type:numeric(14,2);not null"`
	QtyReceived  int             `gorm:"column:qty_received;not null"`
	QtyRemaining int             `gorm:"column:qty_remaining;not null"`
	Note         *string         `gorm:"column:note"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (StockReceipt) TableName() string {
	return "stock_receipts"
}
