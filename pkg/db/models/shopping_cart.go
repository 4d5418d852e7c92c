package models

import (
	"time"

	"github.com/google/uuid"
)

// ShoppingCart holds a purchaser's open positions. Totals are derived
// from the positions on every read and never stored here.
type ShoppingCart struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PurchaserID uuid.UUID      `gorm:"column:purchaser_id;type:uuid;not null;uniqueIndex"`
	Positions   []CartPosition `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
