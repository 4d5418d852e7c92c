package accounts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
	pkgerrors "github.com/prosupplyhq/prosupply-backend/pkg/errors"
	"github.com/prosupplyhq/prosupply-backend/pkg/outbox"
)

func TestRegisterPurchaserCreatesCartAtomically(t *testing.T) {
	users := &stubRegisterUserRepo{}
	buyerRepo := &stubPurchaserRepo{}
	emails := &stubOutbox{}
	svc := buildRegisterService(t, users, &stubSupplierRepo{}, buyerRepo, emails)

	dto, err := svc.Register(context.Background(), sampleRegisterRequest(enums.UserRolePurchaser))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if dto.Role != enums.UserRolePurchaser {
		t.Fatalf("expected purchaser role, got %s", dto.Role)
	}
	if buyerRepo.created == nil {
		t.Fatalf("expected purchaser to be created")
	}
	if buyerRepo.created.Name != "Marsh Wholesale" {
		t.Fatalf("expected company name on purchaser, got %s", buyerRepo.created.Name)
	}
	if buyerRepo.cart == nil {
		t.Fatalf("expected shopping cart to be created in the same transaction")
	}
	if buyerRepo.cart.PurchaserID != buyerRepo.created.ID {
		t.Fatalf("expected cart bound to purchaser %s, got %s", buyerRepo.created.ID, buyerRepo.cart.PurchaserID)
	}
	if len(emails.intents) != 1 || emails.intents[0].Recipient != "owner@example.com" {
		t.Fatalf("expected welcome email intent, got %v", emails.intents)
	}
}

func TestRegisterSupplierStartsAcceptingOrders(t *testing.T) {
	users := &stubRegisterUserRepo{}
	sellerRepo := &stubSupplierRepo{}
	svc := buildRegisterService(t, users, sellerRepo, &stubPurchaserRepo{}, &stubOutbox{})

	_, err := svc.Register(context.Background(), sampleRegisterRequest(enums.UserRoleSupplier))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if sellerRepo.created == nil {
		t.Fatalf("expected supplier to be created")
	}
	if !sellerRepo.created.AcceptingOrders {
		t.Fatalf("expected new supplier to accept orders")
	}
	if sellerRepo.created.UserID != users.created.ID {
		t.Fatalf("expected supplier owned by new user")
	}
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	svc := buildRegisterService(t, &stubRegisterUserRepo{}, &stubSupplierRepo{}, &stubPurchaserRepo{}, &stubOutbox{})

	_, err := svc.Register(context.Background(), sampleRegisterRequest(enums.UserRoleAdmin))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	svc := buildRegisterService(t, &stubRegisterUserRepo{}, &stubSupplierRepo{}, &stubPurchaserRepo{}, &stubOutbox{})

	req := sampleRegisterRequest(enums.UserRolePurchaser)
	req.Password = "12345678"
	_, err := svc.Register(context.Background(), req)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for numeric password, got %v", err)
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	users := &stubRegisterUserRepo{existingEmail: "owner@example.com"}
	svc := buildRegisterService(t, users, &stubSupplierRepo{}, &stubPurchaserRepo{}, &stubOutbox{})

	_, err := svc.Register(context.Background(), sampleRegisterRequest(enums.UserRolePurchaser))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if users.created != nil {
		t.Fatalf("expected no user row on conflict")
	}
}

func TestRegisterDuplicateUsernameConflicts(t *testing.T) {
	users := &stubRegisterUserRepo{existingUsername: "owner"}
	svc := buildRegisterService(t, users, &stubSupplierRepo{}, &stubPurchaserRepo{}, &stubOutbox{})

	_, err := svc.Register(context.Background(), sampleRegisterRequest(enums.UserRolePurchaser))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func sampleRegisterRequest(role enums.UserRole) RegisterRequest {
	return RegisterRequest{
		Email:       "owner@example.com",
		Username:    "owner",
		Password:    "sturdy-pass-9",
		FirstName:   "Olive",
		LastName:    "Marsh",
		Role:        role,
		CompanyName: "Marsh Wholesale",
	}
}

func buildRegisterService(t *testing.T, users *stubRegisterUserRepo, sellers *stubSupplierRepo, buyers *stubPurchaserRepo, emails *stubOutbox) RegisterService {
	t.Helper()
	svc, err := NewRegisterService(RegisterServiceParams{
		DB:     stubTxRunner{},
		Outbox: emails,
	})
	if err != nil {
		t.Fatalf("build register service: %v", err)
	}
	rs := svc.(*registerService)
	rs.userRepo = func(tx *gorm.DB) registerUserRepository { return users }
	rs.supplierRepo = func(tx *gorm.DB) registerSupplierRepository { return sellers }
	rs.purchaserRepo = func(tx *gorm.DB) registerPurchaserRepository { return buyers }
	return svc
}

type stubTxRunner struct {
	err error
}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.err != nil {
		return s.err
	}
	return fn(nil)
}

type stubRegisterUserRepo struct {
	existingEmail    string
	existingUsername string
	created          *models.User
}

func (s *stubRegisterUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.existingEmail != "" && s.existingEmail == email {
		return &models.User{ID: uuid.New(), Email: email}, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRegisterUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if s.existingUsername != "" && s.existingUsername == username {
		return &models.User{ID: uuid.New(), Username: username}, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRegisterUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New()
	s.created = user
	return user, nil
}

type stubSupplierRepo struct {
	created *models.Supplier
	err     error
}

func (s *stubSupplierRepo) Create(ctx context.Context, supplier *models.Supplier) (*models.Supplier, error) {
	if s.err != nil {
		return nil, s.err
	}
	supplier.ID = uuid.New()
	s.created = supplier
	return supplier, nil
}

type stubPurchaserRepo struct {
	created *models.Purchaser
	cart    *models.ShoppingCart
}

func (s *stubPurchaserRepo) Create(ctx context.Context, purchaser *models.Purchaser) (*models.Purchaser, error) {
	purchaser.ID = uuid.New()
	s.created = purchaser
	return purchaser, nil
}

func (s *stubPurchaserRepo) CreateCart(ctx context.Context, cart *models.ShoppingCart) (*models.ShoppingCart, error) {
	cart.ID = uuid.New()
	s.cart = cart
	return cart, nil
}

type stubOutbox struct {
	intents []outbox.EmailIntent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, intent outbox.EmailIntent) error {
	s.intents = append(s.intents, intent)
	return nil
}
