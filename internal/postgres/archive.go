package postgres

import (
	"context"
	"fmt"
	"log"

	"mapworkbench/internal/model"

	"gorm.io/gorm"
)

// archiveBatchSize is the number of rows written per transaction
const archiveBatchSize = 100

// Archive is the durable copy of saved compositions. Deleted rows are soft
// deleted so an archived plan can be recovered by hand.
type Archive struct {
	db *gorm.DB
}

// NewArchive wraps db; callers must have run Init (or AutoMigrate) first
func NewArchive(db *gorm.DB) *Archive {
	return &Archive{db: db}
}

// LoadAll returns every live composition in the archive
func (a *Archive) LoadAll(ctx context.Context) ([]*model.Composition, error) {
	var rows []*model.CompositionPG
	if err := a.db.WithContext(ctx).Order("timestamp").Find(&rows).Error; err != nil {
		return nil, err
	}

	list := make([]*model.Composition, 0, len(rows))
	for _, row := range rows {
		c, err := model.CompositionFromPG(row)
		if err != nil {
			log.Printf("[ARCHIVE] skipping %s: %v", row.ID, err)
			continue
		}
		list = append(list, c)
	}
	return list, nil
}

// Save upserts compositions in batches, one transaction per batch
func (a *Archive) Save(ctx context.Context, list []*model.Composition) error {
	for i := 0; i < len(list); i += archiveBatchSize {
		end := min(i+archiveBatchSize, len(list))
		batch := list[i:end]

		err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, c := range batch {
				row, err := c.ToPG()
				if err != nil {
					return err
				}
				// Unscoped so a re-saved id revives a soft-deleted row
				if err := tx.Unscoped().Save(row).Error; err != nil {
					return fmt.Errorf("failed to save composition %s: %w", c.ID, err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Delete soft deletes the given ids
func (a *Archive) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return a.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.CompositionPG{}).Error
}
