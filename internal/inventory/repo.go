package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aidosgk/kaspi-orders-backend/pkg/db/models"
)

// Repository persists stock receipts and thresholds.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateReceipt(ctx context.Context, receipt *models.StockReceipt) (*models.StockReceipt, error)
	ReceiptsFIFO(ctx context.Context, productCode string) ([]models.StockReceipt, error)
	AllReceipts(ctx context.Context) ([]models.StockReceipt, error)
	ProductCodes(ctx context.Context) ([]string, error)
	SetRemaining(ctx context.Context, id uuid.UUID, qtyRemaining int) error
	ResetRemaining(ctx context.Context, productCode string) error

	UpsertThreshold(ctx context.Context, threshold *models.StockThreshold) error
	Thresholds(ctx context.Context) ([]models.StockThreshold, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateReceipt(ctx context.Context, receipt *models.StockReceipt) (*models.StockReceipt, error) {
	if err := r.db.WithContext(ctx).Create(receipt).Error; err != nil {
		return nil, err
	}
	return receipt, nil
}

// ReceiptsFIFO returns a product's receipts oldest first. Creation time
// breaks ties between deliveries on the same day.
func (r *repository) ReceiptsFIFO(ctx context.Context, productCode string) ([]models.StockReceipt, error) {
	var receipts []models.StockReceipt
	err := r.db.WithContext(ctx).
		Where("product_code = ?", productCode).
		Order("received_at ASC, created_at ASC").
		Find(&receipts).Error
	return receipts, err
}

func (r *repository) AllReceipts(ctx context.Context) ([]models.StockReceipt, error) {
	var receipts []models.StockReceipt
	err := r.db.WithContext(ctx).
		Order("product_code ASC, received_at ASC, created_at ASC").
		Find(&receipts).Error
	return receipts, err
}

func (r *repository) ProductCodes(ctx context.Context) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).
		Model(&models.StockReceipt{}).
		Distinct("product_code").
		Order("product_code ASC").
		Pluck("product_code", &codes).Error
	return codes, err
}

func (r *repository) SetRemaining(ctx context.Context, id uuid.UUID, qtyRemaining int) error {
	return r.db.WithContext(ctx).
		Model(&models.StockReceipt{}).
		Where("id = ?", id).
		Update("qty_remaining", qtyRemaining).Error
}

func (r *repository) ResetRemaining(ctx context.Context, productCode string) error {
	return r.db.WithContext(ctx).
		Model(&models.StockReceipt{}).
		Where("product_code = ?", productCode).
		Update("qty_remaining", gorm.Expr("qty_received")).Error
}

func (r *repository) UpsertThreshold(ctx context.Context, threshold *models.StockThreshold) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_code"}},
			DoUpdates: clause.AssignmentColumns([]string{"threshold", "preferred_name", "updated_at"}),
		}).
		Create(threshold).Error
}

func (r *repository) Thresholds(ctx context.Context) ([]models.StockThreshold, error) {
	var thresholds []models.StockThreshold
	err := r.db.WithContext(ctx).Find(&thresholds).Error
	return thresholds, err
}
