package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductCharacteristic attaches a characteristic value to a specific
// stock listing. One value per characteristic per stock.
type ProductCharacteristic struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StockID          uuid.UUID       `gorm:"column:stock_id;type:uuid;not null;index:idx_product_characteristics_pair,unique"`
	CharacteristicID uuid.UUID       `gorm:"column:characteristic_id;type:uuid;not null;index:idx_product_characteristics_pair,unique"`
	Value            string          `gorm:"column:value;type:text;not null"`
	Stock            *Stock          `gorm:"foreignKey:StockID;constraint:OnDelete:CASCADE"`
	Characteristic   *Characteristic `gorm:"foreignKey:CharacteristicID"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
