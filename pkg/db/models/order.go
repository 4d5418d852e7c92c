package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
)

// Order is a placed cart. Confirmation, delivery and totals are all
// derived from the positions; only the status column is state.
type Order struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PurchaserID  uuid.UUID         `gorm:"column:purchaser_id;type:uuid;not null;index"`
	ChainStoreID uuid.UUID         `gorm:"column:chain_store_id;type:uuid;not null"`
	Status       enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'saved'"`
	Purchaser    *Purchaser        `gorm:"foreignKey:PurchaserID"`
	ChainStore   *ChainStore       `gorm:"foreignKey:ChainStoreID"`
	Positions    []OrderPosition   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
