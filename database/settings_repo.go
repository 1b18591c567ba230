package database

import (
	"context"
	"errors"

	"github.com/rpupo63/portfolio-site-backend/errs"
	"github.com/rpupo63/portfolio-site-backend/models"
	"gorm.io/gorm"
)

type SettingsRepo struct {
	db *gorm.DB
}

func NewSettingsRepo(db *gorm.DB) *SettingsRepo {
	return &SettingsRepo{db}
}

// Find returns the settings row, or nil when the table is empty.
func (r *SettingsRepo) Find(ctx context.Context) (*models.Settings, error) {
	var settings models.Settings
	err := r.db.WithContext(ctx).Order("id").First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewDatabaseError("find", "site settings", err)
	}
	return &settings, nil
}

// Update writes the given columns to the settings row with id.
func (r *SettingsRepo) Update(ctx context.Context, id models.RowID, cols map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Settings{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return errs.NewDatabaseError("update", "site settings", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NewNotFound("site settings")
	}
	return nil
}
