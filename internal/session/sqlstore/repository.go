// Package sqlstore keeps the durable session entries in a SQL table.
package sqlstore

import (
	"context"

	sessionDatamodel "github.com/frahmantamala/employee-portal/internal/core/datamodel/session"
	"github.com/frahmantamala/employee-portal/internal/session"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) session.RepositoryAPI {
	return &Repository{db: db}
}

func (r *Repository) Load(ctx context.Context) (map[string]string, error) {
	var entries []sessionDatamodel.Entry
	if err := r.db.WithContext(ctx).Find(&entries).Error; err != nil {
		return nil, err
	}

	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Value
	}
	return out, nil
}

func (r *Repository) Save(ctx context.Context, entries map[string]string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for key, value := range entries {
			entry := sessionDatamodel.Entry{Key: key, Value: value}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "entry_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"entry_value", "updated_at"}),
			}).Create(&entry).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("entry_key IN ?", keys).Delete(&sessionDatamodel.Entry{}).Error
}
