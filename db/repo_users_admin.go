package db

import (
	"fmt"
	"time"

	"tool_custody/models"

	"gorm.io/gorm/clause"
)

// Trainers

func (t *gormTx) Trainer(id string) (models.Trainer, error) {
	var tr models.Trainer
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&tr, "id = ?", id).Error
	if err != nil {
		return models.Trainer{}, fmt.Errorf("trainer %s: %w", id, translate(err))
	}
	return tr, nil
}

func (t *gormTx) CreateTrainer(tr *models.Trainer) error {
	if err := t.db.Create(tr).Error; err != nil {
		return fmt.Errorf("trainer %s: %w", tr.ID, translate(err))
	}
	return nil
}

func (t *gormTx) SetTrainerPassword(id, hash string) error {
	res := t.db.Model(&models.Trainer{}).
		Where("id = ?", id).
		Updates(map[string]any{"password_hash": hash, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("trainer %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteTrainer removes only the trainer row; ledger rows keep the name
// they were written with.
func (t *gormTx) DeleteTrainer(id string) error {
	res := t.db.Delete(&models.Trainer{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("trainer %s: %w", id, ErrNotFound)
	}
	return nil
}
