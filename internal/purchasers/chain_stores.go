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

// ChainStoreRepository persists delivery locations.
type ChainStoreRepository struct {
	db *gorm.DB
}

func NewChainStoreRepository(db *gorm.DB) *ChainStoreRepository {
	return &ChainStoreRepository{db: db}
}

func (r *ChainStoreRepository) WithTx(tx *gorm.DB) *ChainStoreRepository {
	if tx == nil {
		return r
	}
	return &ChainStoreRepository{db: tx}
}

func (r *ChainStoreRepository) Create(ctx context.Context, store *models.ChainStore) (*models.ChainStore, error) {
	if err := r.db.WithContext(ctx).Create(store).Error; err != nil {
		return nil, err
	}
	return store, nil
}

func (r *ChainStoreRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.ChainStore, error) {
	var store models.ChainStore
	err := r.db.WithContext(ctx).
		First(&store, "chain_stores.id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *ChainStoreRepository) FindScoped(ctx context.Context, scope authz.Scope, id uuid.UUID) (*models.ChainStore, error) {
	var store models.ChainStore
	err := r.db.WithContext(ctx).
		Scopes(scope).
		First(&store, "chain_stores.id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &store, nil
}

// ListScoped returns every visible store for the actor. Purchasers
// rarely run more than a handful of locations, so the list is not
// paginated.
func (r *ChainStoreRepository) ListScoped(ctx context.Context, scope authz.Scope, purchaserID *uuid.UUID) ([]models.ChainStore, error) {
	var stores []models.ChainStore
	tx := r.db.WithContext(ctx).Scopes(scope)
	if purchaserID != nil {
		tx = tx.Where("chain_stores.purchaser_id = ?", *purchaserID)
	}
	if err := tx.Order("chain_stores.name ASC").Find(&stores).Error; err != nil {
		return nil, err
	}
	return stores, nil
}

func (r *ChainStoreRepository) Update(ctx context.Context, store *models.ChainStore) error {
	if store == nil || store.ID == uuid.Nil {
		return gorm.ErrRecordNotFound
	}
	return r.db.WithContext(ctx).
		Omit("Purchaser").
		Save(store).Error
}

func (r *ChainStoreRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.ChainStore{}, "id = ?", id).Error
}

// ChainStoreService manages the stores purchasers ship orders to.
type ChainStoreService interface {
	Create(ctx context.Context, actor authz.Actor, input CreateChainStoreInput) (*ChainStoreDTO, error)
	Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*ChainStoreDTO, error)
	List(ctx context.Context, actor authz.Actor, purchaserID *uuid.UUID) ([]ChainStoreDTO, error)
	Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateChainStoreInput) (*ChainStoreDTO, error)
	Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error
}

type chainStoreService struct {
	stores     *ChainStoreRepository
	purchasers *Repository
}

// NewChainStoreService constructs the chain store service.
func NewChainStoreService(stores *ChainStoreRepository, purchasers *Repository) (ChainStoreService, error) {
	if stores == nil {
		return nil, fmt.Errorf("chain store repository required")
	}
	if purchasers == nil {
		return nil, fmt.Errorf("purchaser repository required")
	}
	return &chainStoreService{stores: stores, purchasers: purchasers}, nil
}

// resolvePurchaser picks the purchaser a store belongs to. Admins may
// name one explicitly; everyone else gets their own profile.
func (s *chainStoreService) resolvePurchaser(ctx context.Context, actor authz.Actor, override *uuid.UUID) (*models.Purchaser, error) {
	if override != nil {
		if actor.Role != enums.UserRoleAdmin {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot manage stores for another purchaser")
		}
		purchaser, err := s.purchasers.FindByID(ctx, *override)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchaser not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchaser")
		}
		return purchaser, nil
	}

	purchaser, err := s.purchasers.FindByUser(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "purchaser profile required")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchaser")
	}
	return purchaser, nil
}

func (s *chainStoreService) Create(ctx context.Context, actor authz.Actor, input CreateChainStoreInput) (*ChainStoreDTO, error) {
	if !authz.Can(actor, authz.ActionCreate, authz.ResourceChainStore) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	address := strings.TrimSpace(input.Address)
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address is required")
	}

	purchaser, err := s.resolvePurchaser(ctx, actor, input.PurchaserID)
	if err != nil {
		return nil, err
	}

	store := &models.ChainStore{
		PurchaserID: purchaser.ID,
		Name:        name,
		Address:     address,
	}
	if _, err := s.stores.Create(ctx, store); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert chain store")
	}
	return ChainStoreFromModel(store), nil
}

func (s *chainStoreService) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*ChainStoreDTO, error) {
	if !authz.Can(actor, authz.ActionRead, authz.ResourceChainStore) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	store, err := s.stores.FindScoped(ctx, authz.ChainStoreScope(actor), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "chain store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load chain store")
	}
	return ChainStoreFromModel(store), nil
}

func (s *chainStoreService) List(ctx context.Context, actor authz.Actor, purchaserID *uuid.UUID) ([]ChainStoreDTO, error) {
	if !authz.Can(actor, authz.ActionRead, authz.ResourceChainStore) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	rows, err := s.stores.ListScoped(ctx, authz.ChainStoreScope(actor), purchaserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list chain stores")
	}
	stores := make([]ChainStoreDTO, 0, len(rows))
	for i := range rows {
		stores = append(stores, *ChainStoreFromModel(&rows[i]))
	}
	return stores, nil
}

func (s *chainStoreService) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateChainStoreInput) (*ChainStoreDTO, error) {
	if !authz.Can(actor, authz.ActionUpdate, authz.ResourceChainStore) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	store, err := s.stores.FindScoped(ctx, authz.ChainStoreScope(actor), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "chain store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load chain store")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must not be empty")
		}
		store.Name = name
	}
	if input.Address != nil {
		address := strings.TrimSpace(*input.Address)
		if address == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "address must not be empty")
		}
		store.Address = address
	}

	if err := s.stores.Update(ctx, store); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update chain store")
	}
	return ChainStoreFromModel(store), nil
}

func (s *chainStoreService) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if !authz.Can(actor, authz.ActionDelete, authz.ResourceChainStore) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	store, err := s.stores.FindScoped(ctx, authz.ChainStoreScope(actor), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "chain store not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load chain store")
	}
	if err := s.stores.Delete(ctx, store.ID); err != nil {
		if db.IsForeignKeyViolation(err) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "chain store has order history")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete chain store")
	}
	return nil
}
