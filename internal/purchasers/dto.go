package purchasers

import (
	"time"

	"github.com/google/uuid"

	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	"github.com/prosupplyhq/prosupply-backend/pkg/pagination"
)

// PurchaserDTO is the transport shape for a buying party.
type PurchaserDTO struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Name      string     `json:"name"`
	Address   *string    `json:"address,omitempty"`
	CartID    *uuid.UUID `json:"cart_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// FromModel converts a purchaser record into its transport shape.
func FromModel(p *models.Purchaser) *PurchaserDTO {
	if p == nil {
		return nil
	}
	dto := &PurchaserDTO{
		ID:        p.ID,
		UserID:    p.UserID,
		Name:      p.Name,
		Address:   p.Address,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.Cart != nil {
		dto.CartID = &p.Cart.ID
	}
	return dto
}

// CreatePurchaserInput holds the payload to create a purchaser profile.
// UserID is honored for admin callers only.
type CreatePurchaserInput struct {
	Name    string  `json:"name" validate:"required"`
	Address *string `json:"address,omitempty"`
	UserID  *uuid.UUID
}

// UpdatePurchaserInput holds optional profile mutations.
type UpdatePurchaserInput struct {
	Name    *string `json:"name,omitempty"`
	Address *string `json:"address,omitempty"`
}

// PurchaserListQuery bundles the filter and pagination inputs.
type PurchaserListQuery struct {
	Query      string
	Pagination pagination.Params
}

// PurchaserListResult pairs a page of purchasers with its next cursor.
type PurchaserListResult struct {
	Purchasers []PurchaserDTO `json:"purchasers"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// ChainStoreDTO is the transport shape for a delivery destination.
type ChainStoreDTO struct {
	ID          uuid.UUID `json:"id"`
	PurchaserID uuid.UUID `json:"purchaser_id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ChainStoreFromModel converts a chain store record into its transport shape.
func ChainStoreFromModel(c *models.ChainStore) *ChainStoreDTO {
	if c == nil {
		return nil
	}
	return &ChainStoreDTO{
		ID:          c.ID,
		PurchaserID: c.PurchaserID,
		Name:        c.Name,
		Address:     c.Address,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// CreateChainStoreInput holds the payload to register a destination.
// PurchaserID is honored for admin callers only.
type CreateChainStoreInput struct {
	Name        string `json:"name" validate:"required"`
	Address     string `json:"address" validate:"required"`
	PurchaserID *uuid.UUID
}

// UpdateChainStoreInput holds optional destination mutations.
type UpdateChainStoreInput struct {
	Name    *string `json:"name,omitempty"`
	Address *string `json:"address,omitempty"`
}
