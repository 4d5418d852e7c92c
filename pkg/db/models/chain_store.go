package models

import (
	"time"

	"github.com/google/uuid"
)

// ChainStore is a delivery destination owned by a purchaser.
type ChainStore struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PurchaserID uuid.UUID  `gorm:"column:purchaser_id;type:uuid;not null;index"`
	Name        string     `gorm:"column:name;type:text;not null"`
	Address     string     `gorm:"column:address;not null"`
	Purchaser   *Purchaser `gorm:"foreignKey:PurchaserID"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
