package profit

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aidosgk/kaspi-orders-backend/pkg/db/models"
)

// Repository persists manual cost overrides.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	UpsertManualCost(ctx context.Context, cost *models.ManualCost) error
	ManualCost(ctx context.Context, orderNumber string) (*models.ManualCost, bool, error)
	ManualCosts(ctx context.Context, orderNumbers []string) (map[string]models.ManualCost, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a profit repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) UpsertManualCost(ctx context.Context, cost *models.ManualCost) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"cost", "note", "updated_at"}),
		}).
		Create(cost).Error
}

func (r *repository) ManualCost(ctx context.Context, orderNumber string) (*models.ManualCost, bool, error) {
	var cost models.ManualCost
	err := r.db.WithContext(ctx).
		Where("order_number = ?", orderNumber).
		First(&cost).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &cost, true, nil
}

func (r *repository) ManualCosts(ctx context.Context, orderNumbers []string) (map[string]models.ManualCost, error) {
	out := make(map[string]models.ManualCost, len(orderNumbers))
	if len(orderNumbers) == 0 {
		return out, nil
	}
	var rows []models.ManualCost
	err := r.db.WithContext(ctx).
		Where("order_number IN ?", orderNumbers).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.OrderNumber] = row
	}
	return out, nil
}
