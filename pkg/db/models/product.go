package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog item within one category. Many suppliers can
// list the same product through their own stocks.
type Product struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string    `gorm:"column:name;type:text;not null;index:idx_products_name_category,unique"`
	CategoryID uuid.UUID `gorm:"column:category_id;type:uuid;not null;index:idx_products_name_category,unique"`
	Category   *Category `gorm:"foreignKey:CategoryID"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
