package accounts

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/prosupplyhq/prosupply-backend/internal/catalog"
	"github.com/prosupplyhq/prosupply-backend/internal/purchasers"
	"github.com/prosupplyhq/prosupply-backend/pkg/config"
	"github.com/prosupplyhq/prosupply-backend/pkg/db"
	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
	pkgerrors "github.com/prosupplyhq/prosupply-backend/pkg/errors"
	"github.com/prosupplyhq/prosupply-backend/pkg/outbox"
	"github.com/prosupplyhq/prosupply-backend/pkg/security"
)

// RegisterService handles the onboarding transaction.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*UserDTO, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
// DB is satisfied by *db.Client.
type RegisterServiceParams struct {
	DB             txRunner
	Outbox         outboxEmitter
	PasswordConfig config.PasswordConfig
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, intent outbox.EmailIntent) error
}

type registerUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
}

type registerSupplierRepository interface {
	Create(ctx context.Context, supplier *models.Supplier) (*models.Supplier, error)
}

type registerPurchaserRepository interface {
	Create(ctx context.Context, purchaser *models.Purchaser) (*models.Purchaser, error)
	CreateCart(ctx context.Context, cart *models.ShoppingCart) (*models.ShoppingCart, error)
}

type registerService struct {
	db          txRunner
	outbox      outboxEmitter
	passwordCfg config.PasswordConfig

	userRepo      func(tx *gorm.DB) registerUserRepository
	supplierRepo  func(tx *gorm.DB) registerSupplierRepository
	purchaserRepo func(tx *gorm.DB) registerPurchaserRepository
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	return &registerService{
		db:          params.DB,
		outbox:      params.Outbox,
		passwordCfg: params.PasswordConfig,
		userRepo: func(tx *gorm.DB) registerUserRepository {
			return NewRepository(tx)
		},
		supplierRepo: func(tx *gorm.DB) registerSupplierRepository {
			return catalog.NewSupplierRepository(tx)
		},
		purchaserRepo: func(tx *gorm.DB) registerPurchaserRepository {
			return purchasers.NewRepository(tx)
		},
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username is required")
	}
	companyName := strings.TrimSpace(req.CompanyName)
	if companyName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company_name is required")
	}
	if req.Role != enums.UserRolePurchaser && req.Role != enums.UserRoleSupplier {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be purchaser or supplier")
	}
	if err := security.ValidatePasswordStrength(req.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "password strength")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.User
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := s.userRepo(tx)

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}
		if _, err := userRepo.FindByUsername(ctx, username); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check username")
		}

		user, err := userRepo.Create(ctx, &models.User{
			Email:        email,
			Username:     username,
			PasswordHash: passwordHash,
			FirstName:    strings.TrimSpace(req.FirstName),
			LastName:     strings.TrimSpace(req.LastName),
			Role:         req.Role,
			IsActive:     true,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		switch req.Role {
		case enums.UserRolePurchaser:
			purchaserRepo := s.purchaserRepo(tx)
			purchaser, err := purchaserRepo.Create(ctx, &models.Purchaser{
				UserID:  user.ID,
				Name:    companyName,
				Address: req.Address,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create purchaser")
			}
			if _, err := purchaserRepo.CreateCart(ctx, &models.ShoppingCart{
				PurchaserID: purchaser.ID,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create shopping cart")
			}
		case enums.UserRoleSupplier:
			if _, err := s.supplierRepo(tx).Create(ctx, &models.Supplier{
				UserID:          user.ID,
				Name:            companyName,
				Address:         req.Address,
				AcceptingOrders: true,
			}); err != nil {
				if db.IsUniqueViolation(err, "suppliers_name") {
					return pkgerrors.New(pkgerrors.CodeConflict, "supplier name already taken")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create supplier")
			}
		}

		if err := s.outbox.Emit(ctx, tx, outbox.EmailIntent{
			Recipient: email,
			Subject:   "Welcome to ProSupply",
			Body:      "Your account is ready. Sign in to get started.",
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue welcome email")
		}

		created = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(created), nil
}
