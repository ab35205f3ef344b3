package models

import (
	"time"
)

const TrainerTable = "whs_trainers"

// Trainer 持有工具的培训师；密码只存 bcrypt 哈希，不参与序列化
type Trainer struct {
	ID           string    `gorm:"size:64;primaryKey" json:"id"`
	Name         string    `gorm:"size:200;not null" json:"name"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (Trainer) TableName() string {
	return TrainerTable
}
