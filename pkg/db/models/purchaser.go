package models

import (
	"time"

	"github.com/google/uuid"
)

// Purchaser is a buying party owned by exactly one user. Its shopping
// cart is created in the same transaction as the purchaser itself.
type Purchaser struct {
	ID        uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID     `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Name      string        `gorm:"column:name;type:text;not null"`
	Address   *string       `gorm:"column:address"`
	User      *User         `gorm:"foreignKey:UserID"`
	Cart      *ShoppingCart `gorm:"foreignKey:PurchaserID"`
	CreatedAt time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}
