package settings

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aidosgk/kaspi-orders-backend/pkg/db"
	"github.com/aidosgk/kaspi-orders-backend/pkg/db/models"
)

// Repository persists store settings as key/value pairs.
type Repository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) (map[string]string, error)
}

type repository struct {
	client *db.Client
}

// NewRepository wires the settings repository to the database client.
func NewRepository(client *db.Client) Repository {
	return &repository{client: client}
}

func (r *repository) Get(ctx context.Context, key string) (string, bool, error) {
	var setting models.StoreSetting
	err := r.client.DB().WithContext(ctx).
		Where("key = ?", key).
		First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("loading setting %q: %w", key, err)
	}
	return setting.Value, true, nil
}

func (r *repository) Set(ctx context.Context, key, value string) error {
	setting := models.StoreSetting{Key: key, Value: value}
	err := r.client.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&setting).Error
	if err != nil {
		return fmt.Errorf("saving setting %q: %w", key, err)
	}
	return nil
}

func (r *repository) All(ctx context.Context) (map[string]string, error) {
	var rows []models.StoreSetting
	if err := r.client.DB().WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}
