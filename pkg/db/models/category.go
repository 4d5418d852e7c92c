package models

import (
	"time"

	"github.com/google/uuid"
)

// Category groups products; a supplier serves zero or more categories.
type Category struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string     `gorm:"column:name;type:text;not null;uniqueIndex"`
	Suppliers []Supplier `gorm:"many2many:category_suppliers"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
