// models/item_loan.go
package models

import "time"

const ItemTable = "whs_items"
const TransactionTable = "whs_transactions"

type ItemStatus string

const (
	ItemAvailable   ItemStatus = "AVAILABLE"
	ItemCheckedOut  ItemStatus = "CHECKED_OUT"
	ItemMaintenance ItemStatus = "MAINTENANCE"
)

type Item struct {
	ID        string     `gorm:"size:64;primaryKey" json:"id"`
	Name      string     `gorm:"size:200;not null" json:"name"`
	Category  string     `gorm:"size:120;not null" json:"category"`
	Status    ItemStatus `gorm:"size:20;not null;default:'AVAILABLE';index" json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Transaction is one loan in the append-only ledger. Only IsActive,
// ReturnTime and ReturnRequested change after creation.
type Transaction struct {
	ID              string     `gorm:"size:64;primaryKey" json:"id"`
	ItemID          string     `gorm:"size:64;index;not null" json:"itemId"`
	ItemName        string     `gorm:"size:200;not null" json:"itemName"`
	TrainerID       string     `gorm:"size:64;index;not null" json:"trainerId"`
	TrainerName     string     `gorm:"size:200;not null" json:"trainerName"`
	CheckoutTime    time.Time  `gorm:"index;not null" json:"checkoutTime"`
	ReturnTime      *time.Time `json:"returnTime,omitempty"`
	IsActive        bool       `gorm:"not null" json:"isActive"`
	ReturnRequested bool       `gorm:"not null;default:false" json:"returnRequested"`
}

func (Item) TableName() string        { return ItemTable }
func (Transaction) TableName() string { return TransactionTable }

// Pending reports an open loan whose holder asked to return it.
func (t Transaction) Pending() bool { return t.IsActive && t.ReturnRequested }
