package db

import (
	"fmt"
	"time"

	"tool_custody/config"
	"tool_custody/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func ConnectDB(cfg config.Config) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", translate(err))
	}

	if err := Migrate(gdb); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	config.Info("database connected host=%s db=%s", cfg.DBHost, cfg.DBName)
	return gdb, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Item{}, &models.Trainer{}, &models.Transaction{}); err != nil {
		return err
	}

	// 同一工具最多一条未归还的借出记录
	if err := db.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_active_per_item
	  ON %s (item_id)
	  WHERE is_active;
	`, models.TransactionTable, models.TransactionTable)).Error; err != nil {
		return err
	}

	// 培训师删除级联、待审批列表
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_active_by_trainer
	  ON %s (trainer_id, checkout_time)
	  WHERE is_active;
	`, models.TransactionTable, models.TransactionTable)).Error; err != nil {
		return err
	}

	return nil
}
