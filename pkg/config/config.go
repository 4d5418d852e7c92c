package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Orders        OrdersConfig
	Import        ImportConfig
	Notify        NotifyConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PROSUPPLY_APP_ENV" required:"true"`
	Port         string `envconfig:"PROSUPPLY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PROSUPPLY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PROSUPPLY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PROSUPPLY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PROSUPPLY_DB_DSN"`
	Driver string `envconfig:"PROSUPPLY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PROSUPPLY_DB_HOST"`
	LegacyPort     int    `envconfig:"PROSUPPLY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PROSUPPLY_DB_USER"`
	LegacyPassword string `envconfig:"PROSUPPLY_DB_PASSWORD"`
	LegacyName     string `envconfig:"PROSUPPLY_DB_NAME"`
	LegacySSLMode  string `envconfig:"PROSUPPLY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PROSUPPLY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PROSUPPLY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PROSUPPLY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PROSUPPLY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PROSUPPLY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PROSUPPLY_REDIS_ADDR"`
	Password     string        `envconfig:"PROSUPPLY_REDIS_PASSWORD"`
	DB           int           `envconfig:"PROSUPPLY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PROSUPPLY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PROSUPPLY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PROSUPPLY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PROSUPPLY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PROSUPPLY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"PROSUPPLY_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"PROSUPPLY_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"PROSUPPLY_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"PROSUPPLY_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PROSUPPLY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PROSUPPLY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PROSUPPLY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PROSUPPLY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PROSUPPLY_ARGON_KEY_LEN" default:"32"`

	ResetTokenTTL time.Duration `envconfig:"PROSUPPLY_PASSWORD_RESET_TOKEN_TTL" default:"24h"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"PROSUPPLY_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"PROSUPPLY_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"PROSUPPLY_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"PROSUPPLY_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"PROSUPPLY_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"PROSUPPLY_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type OrdersConfig struct {
	// CombinedSurchargeFactor multiplies an order's total when its
	// positions span more than one supplier.
	CombinedSurchargeFactor decimal.Decimal `envconfig:"PROSUPPLY_ORDERS_COMBINED_SURCHARGE_FACTOR" default:"1.1"`
}

type ImportConfig struct {
	QueueKey      string        `envconfig:"PROSUPPLY_IMPORT_QUEUE_KEY" default:"prosupply:import:jobs"`
	FetchTimeout  time.Duration `envconfig:"PROSUPPLY_IMPORT_FETCH_TIMEOUT" default:"30s"`
	MaxDocumentMB int           `envconfig:"PROSUPPLY_IMPORT_MAX_DOCUMENT_MB" default:"10"`
	PollInterval  time.Duration `envconfig:"PROSUPPLY_IMPORT_POLL_INTERVAL" default:"2s"`
}

type NotifyConfig struct {
	SenderAddress string `envconfig:"PROSUPPLY_NOTIFY_SENDER_ADDRESS" default:"noreply@prosupply.io"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PROSUPPLY_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"PROSUPPLY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PROSUPPLY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	EmailTopic string `envconfig:"PROSUPPLY_PUBSUB_EMAIL_TOPIC" default:"prosupply-email-dispatch"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PROSUPPLY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PROSUPPLY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PROSUPPLY_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PROSUPPLY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PROSUPPLY_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
