package db

import (
	"errors"
	"fmt"

	"tool_custody/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Transactions

func (t *gormTx) Transaction(id string) (models.Transaction, error) {
	var tr models.Transaction
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&tr, "id = ?", id).Error
	if err != nil {
		return models.Transaction{}, fmt.Errorf("transaction %s: %w", id, translate(err))
	}
	return tr, nil
}

func (t *gormTx) ActiveByTrainer(trainerID string) ([]models.Transaction, error) {
	var out []models.Transaction
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("trainer_id = ? AND is_active", trainerID).
		Order("checkout_time, id").
		Find(&out).Error
	return out, translate(err)
}

func (t *gormTx) ActiveByItem(itemID string) (*models.Transaction, error) {
	var tr models.Transaction
	err := t.db.Where("item_id = ? AND is_active", itemID).Take(&tr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}
	return &tr, nil
}

// CreateTransaction relies on the partial unique index to reject a second
// active transaction for the same item.
func (t *gormTx) CreateTransaction(tr *models.Transaction) error {
	if err := t.db.Create(tr).Error; err != nil {
		return fmt.Errorf("transaction %s: %w", tr.ID, translate(err))
	}
	return nil
}

func (t *gormTx) SaveTransactionState(tr models.Transaction) error {
	res := t.db.Model(&models.Transaction{}).
		Where("id = ?", tr.ID).
		Updates(map[string]any{
			"is_active":        tr.IsActive,
			"return_requested": tr.ReturnRequested,
			"return_time":      tr.ReturnTime,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("transaction %s: %w", tr.ID, ErrNotFound)
	}
	return nil
}
