package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prosupplyhq/prosupply-backend/api/controllers"
	"github.com/prosupplyhq/prosupply-backend/api/middleware"
	"github.com/prosupplyhq/prosupply-backend/internal/accounts"
	"github.com/prosupplyhq/prosupply-backend/internal/cart"
	"github.com/prosupplyhq/prosupply-backend/internal/catalog"
	"github.com/prosupplyhq/prosupply-backend/internal/importer"
	"github.com/prosupplyhq/prosupply-backend/internal/orders"
	"github.com/prosupplyhq/prosupply-backend/internal/purchasers"
	"github.com/prosupplyhq/prosupply-backend/pkg/auth/session"
	"github.com/prosupplyhq/prosupply-backend/pkg/config"
	"github.com/prosupplyhq/prosupply-backend/pkg/db"
	"github.com/prosupplyhq/prosupply-backend/pkg/logger"
	"github.com/prosupplyhq/prosupply-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionChecker session.AccessSessionChecker,
	accountsService accounts.Service,
	registerService accounts.RegisterService,
	resetService accounts.PasswordResetService,
	supplierService catalog.SupplierService,
	referenceService catalog.ReferenceService,
	stockService catalog.StockService,
	purchaserService purchasers.Service,
	chainStoreService purchasers.ChainStoreService,
	cartService cart.Service,
	orderService orders.Service,
	importService importer.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	resetPolicy := middleware.NewAuthRateLimitPolicy(
		"password-reset",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	var redisP redis.Pinger
	if redisClient != nil {
		redisP = redisClient
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(registerService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(accountsService, logg))
		r.Post("/refresh", controllers.AuthRefresh(accountsService, logg))
		r.With(middleware.AuthRateLimit(resetPolicy, redisClient, logg)).Post("/password-reset", controllers.PasswordResetRequest(resetService, logg))
		r.With(middleware.AuthRateLimit(resetPolicy, redisClient, logg)).Post("/password-reset/confirm", controllers.PasswordResetConfirm(resetService, logg))
		r.With(middleware.Auth(cfg.JWT, sessionChecker, logg)).Post("/logout", controllers.AuthLogout(accountsService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/users", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, "admin")).Post("/", controllers.AuthRegister(registerService, logg))
			r.Get("/", controllers.UserList(accountsService, logg))
			r.Get("/{userID}", controllers.UserFetch(accountsService, logg))
			r.Patch("/{userID}", controllers.UserUpdate(accountsService, logg))
			r.Delete("/{userID}", controllers.UserDeactivate(accountsService, logg))
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", controllers.SupplierList(supplierService, logg))
			r.Post("/", controllers.SupplierCreate(supplierService, logg))
			r.Get("/{supplierID}", controllers.SupplierFetch(supplierService, logg))
			r.Patch("/{supplierID}", controllers.SupplierUpdate(supplierService, logg))
			r.Delete("/{supplierID}", controllers.SupplierRetire(supplierService, logg))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.CategoryList(referenceService, logg))
			r.Post("/", controllers.CategoryCreate(referenceService, logg))
			r.Get("/{categoryID}", controllers.CategoryFetch(referenceService, logg))
			r.Patch("/{categoryID}", controllers.CategoryUpdate(referenceService, logg))
			r.Delete("/{categoryID}", controllers.CategoryDelete(referenceService, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(referenceService, logg))
			r.Post("/", controllers.ProductCreate(referenceService, logg))
			r.Get("/{productID}", controllers.ProductFetch(referenceService, logg))
			r.Patch("/{productID}", controllers.ProductUpdate(referenceService, logg))
			r.Delete("/{productID}", controllers.ProductDelete(referenceService, logg))
		})

		r.Route("/characteristics", func(r chi.Router) {
			r.Get("/", controllers.CharacteristicList(referenceService, logg))
			r.Post("/", controllers.CharacteristicCreate(referenceService, logg))
			r.Get("/{characteristicID}", controllers.CharacteristicFetch(referenceService, logg))
			r.Patch("/{characteristicID}", controllers.CharacteristicUpdate(referenceService, logg))
			r.Delete("/{characteristicID}", controllers.CharacteristicDelete(referenceService, logg))
		})

		r.Route("/stocks", func(r chi.Router) {
			r.Get("/", controllers.StockList(stockService, logg))
			r.Post("/", controllers.StockCreate(stockService, logg))
			r.Get("/{stockID}", controllers.StockFetch(stockService, logg))
			r.Patch("/{stockID}", controllers.StockUpdate(stockService, logg))
			r.Delete("/{stockID}", controllers.StockDelete(stockService, logg))
		})

		r.Route("/product-characteristics", func(r chi.Router) {
			r.Get("/", controllers.ProductCharacteristicList(stockService, logg))
			r.Post("/", controllers.ProductCharacteristicCreate(stockService, logg))
			r.Get("/{valueID}", controllers.ProductCharacteristicFetch(stockService, logg))
			r.Patch("/{valueID}", controllers.ProductCharacteristicUpdate(stockService, logg))
			r.Delete("/{valueID}", controllers.ProductCharacteristicDelete(stockService, logg))
		})

		r.Route("/purchasers", func(r chi.Router) {
			r.Get("/", controllers.PurchaserList(purchaserService, logg))
			r.Post("/", controllers.PurchaserCreate(purchaserService, logg))
			r.Get("/{purchaserID}", controllers.PurchaserFetch(purchaserService, logg))
			r.Patch("/{purchaserID}", controllers.PurchaserUpdate(purchaserService, logg))
		})

		r.Route("/chain-stores", func(r chi.Router) {
			r.Get("/", controllers.ChainStoreList(chainStoreService, logg))
			r.Post("/", controllers.ChainStoreCreate(chainStoreService, logg))
			r.Get("/{chainStoreID}", controllers.ChainStoreFetch(chainStoreService, logg))
			r.Patch("/{chainStoreID}", controllers.ChainStoreUpdate(chainStoreService, logg))
			r.Delete("/{chainStoreID}", controllers.ChainStoreDelete(chainStoreService, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(cartService, logg))
			r.Delete("/", controllers.CartClear(cartService, logg))
			r.Post("/positions", controllers.CartPositionAdd(cartService, logg))
			r.Patch("/positions/{positionID}", controllers.CartPositionUpdate(cartService, logg))
			r.Delete("/positions/{positionID}", controllers.CartPositionRemove(cartService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(orderService, logg))
			r.Post("/", controllers.OrderPlace(orderService, logg))
			r.Get("/{orderID}", controllers.OrderFetch(orderService, logg))
			r.Patch("/{orderID}", controllers.OrderAmend(orderService, logg))
			r.Post("/{orderID}/cancel", controllers.OrderCancel(orderService, logg))
		})

		r.Route("/order-positions", func(r chi.Router) {
			r.Get("/", controllers.OrderPositionList(orderService, logg))
			r.Get("/{positionID}", controllers.OrderPositionFetch(orderService, logg))
			r.Patch("/{positionID}", controllers.OrderPositionUpdate(orderService, logg))
		})

		r.Route("/imports", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, "supplier", "admin"))
			r.Post("/", controllers.ImportSubmit(importService, logg))
			r.Get("/{jobID}", controllers.ImportStatus(importService, logg))
		})
	})

	return r
}
