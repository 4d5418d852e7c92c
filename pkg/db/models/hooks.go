package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Rows get their ids app-side so create flows can read them back
// immediately on any driver.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (u *User) BeforeCreate(*gorm.DB) error { ensureID(&u.ID); return nil }

func (s *Supplier) BeforeCreate(*gorm.DB) error { ensureID(&s.ID); return nil }

func (p *Purchaser) BeforeCreate(*gorm.DB) error { ensureID(&p.ID); return nil }

func (c *ChainStore) BeforeCreate(*gorm.DB) error { ensureID(&c.ID); return nil }

func (c *Category) BeforeCreate(*gorm.DB) error { ensureID(&c.ID); return nil }

func (p *Product) BeforeCreate(*gorm.DB) error { ensureID(&p.ID); return nil }

func (c *Characteristic) BeforeCreate(*gorm.DB) error { ensureID(&c.ID); return nil }

func (s *Stock) BeforeCreate(*gorm.DB) error { ensureID(&s.ID); return nil }

func (p *ProductCharacteristic) BeforeCreate(*gorm.DB) error { ensureID(&p.ID); return nil }

func (s *ShoppingCart) BeforeCreate(*gorm.DB) error { ensureID(&s.ID); return nil }

func (c *CartPosition) BeforeCreate(*gorm.DB) error { ensureID(&c.ID); return nil }

func (o *Order) BeforeCreate(*gorm.DB) error { ensureID(&o.ID); return nil }

func (o *OrderPosition) BeforeCreate(*gorm.DB) error { ensureID(&o.ID); return nil }

func (i *ImportJob) BeforeCreate(*gorm.DB) error { ensureID(&i.ID); return nil }

func (o *OutboxMessage) BeforeCreate(*gorm.DB) error { ensureID(&o.ID); return nil }

func (p *PasswordResetToken) BeforeCreate(*gorm.DB) error { ensureID(&p.ID); return nil }
