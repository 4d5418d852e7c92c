package models

import (
	"time"

	"github.com/google/uuid"
)

// Supplier is a selling party owned by exactly one user. Suppliers are
// never hard-deleted; retiring one clears AcceptingOrders instead.
type Supplier struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Name            string    `gorm:"column:name;type:text;not null;uniqueIndex"`
	Address         *string   `gorm:"column:address"`
	AcceptingOrders bool      `gorm:"column:accepting_orders;not null;default:true"`
	User            *User     `gorm:"foreignKey:UserID"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
