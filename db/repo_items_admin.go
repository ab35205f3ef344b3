// db/repo_items_admin.go
package db

import (
	"fmt"
	"time"

	"tool_custody/models"

	"gorm.io/gorm/clause"
)

// Items

// Item locks the row so concurrent checkouts of the same tool serialize.
func (t *gormTx) Item(id string) (models.Item, error) {
	var it models.Item
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&it, "id = ?", id).Error
	if err != nil {
		return models.Item{}, fmt.Errorf("item %s: %w", id, translate(err))
	}
	return it, nil
}

func (t *gormTx) CreateItem(it *models.Item) error {
	if err := t.db.Create(it).Error; err != nil {
		return fmt.Errorf("item %s: %w", it.ID, translate(err))
	}
	return nil
}

func (t *gormTx) SetItemStatus(id string, status models.ItemStatus) error {
	res := t.db.Model(&models.Item{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return nil
}
