package purchasers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prosupplyhq/prosupply-backend/internal/authz"
	"github.com/prosupplyhq/prosupply-backend/pkg/db"
	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
	pkgerrors "github.com/prosupplyhq/prosupply-backend/pkg/errors"
)

// Service manages purchaser profiles. Registration creates most
// profiles; this service covers users who registered before picking a
// side and admin-driven management.
type Service interface {
	Create(ctx context.Context, actor authz.Actor, input CreatePurchaserInput) (*PurchaserDTO, error)
	Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*PurchaserDTO, error)
	List(ctx context.Context, actor authz.Actor, query PurchaserListQuery) (*PurchaserListResult, error)
	Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdatePurchaserInput) (*PurchaserDTO, error)
}

type service struct {
	db   *db.Client
	repo *Repository
}

// NewService constructs the purchaser service.
func NewService(client *db.Client, repo *Repository) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("purchaser repository required")
	}
	return &service{db: client, repo: repo}, nil
}

func (s *service) Create(ctx context.Context, actor authz.Actor, input CreatePurchaserInput) (*PurchaserDTO, error) {
	if !authz.Can(actor, authz.ActionCreate, authz.ResourcePurchaser) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	ownerID := actor.UserID
	if input.UserID != nil {
		if actor.Role != enums.UserRoleAdmin {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot create a purchaser for another user")
		}
		ownerID = *input.UserID
	}

	if _, err := s.repo.FindByUser(ctx, ownerID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "purchaser profile already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check purchaser owner")
	}

	purchaser := &models.Purchaser{
		UserID:  ownerID,
		Name:    name,
		Address: input.Address,
	}

	// The cart rides in the same transaction so no purchaser ever
	// exists without one.
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, purchaser); err != nil {
			if db.IsUniqueViolation(err, "purchasers_user_id") {
				return pkgerrors.New(pkgerrors.CodeConflict, "purchaser profile already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert purchaser")
		}
		if _, err := repo.CreateCart(ctx, &models.ShoppingCart{PurchaserID: purchaser.ID}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert cart")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchaser")
	}

	created, err := s.repo.FindByID(ctx, purchaser.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload purchaser")
	}
	return FromModel(created), nil
}

func (s *service) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*PurchaserDTO, error) {
	if !authz.Can(actor, authz.ActionRead, authz.ResourcePurchaser) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	purchaser, err := s.repo.FindScoped(ctx, authz.PurchaserScope(actor), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchaser not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchaser")
	}
	return FromModel(purchaser), nil
}

func (s *service) List(ctx context.Context, actor authz.Actor, query PurchaserListQuery) (*PurchaserListResult, error) {
	if !authz.Can(actor, authz.ActionRead, authz.ResourcePurchaser) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	rows, nextCursor, err := s.repo.List(ctx, authz.PurchaserScope(actor), query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchasers")
	}
	purchasers := make([]PurchaserDTO, 0, len(rows))
	for i := range rows {
		purchasers = append(purchasers, *FromModel(&rows[i]))
	}
	return &PurchaserListResult{Purchasers: purchasers, NextCursor: nextCursor}, nil
}

func (s *service) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdatePurchaserInput) (*PurchaserDTO, error) {
	if !authz.Can(actor, authz.ActionUpdate, authz.ResourcePurchaser) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	purchaser, err := s.repo.FindScoped(ctx, authz.PurchaserScope(actor), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchaser not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchaser")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must not be empty")
		}
		purchaser.Name = name
	}
	if input.Address != nil {
		purchaser.Address = input.Address
	}

	if err := s.repo.Update(ctx, purchaser); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update purchaser")
	}
	return FromModel(purchaser), nil
}
