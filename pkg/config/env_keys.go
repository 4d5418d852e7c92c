package config

// EnvPrefix is empty because every envconfig tag carries the full
// PROSUPPLY_ variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "PROSUPPLY_APP_ENV"
	EnvPort                   = "PROSUPPLY_APP_PORT"
	EnvDBDSN                  = "PROSUPPLY_DB_DSN"
	EnvDBHost                 = "PROSUPPLY_DB_HOST"
	EnvDBUser                 = "PROSUPPLY_DB_USER"
	EnvDBName                 = "PROSUPPLY_DB_NAME"
	EnvRedisURL               = "PROSUPPLY_REDIS_URL"
	EnvJWTSecret              = "PROSUPPLY_JWT_SECRET"
	EnvJWTIssuer              = "PROSUPPLY_JWT_ISSUER"
	EnvJWTExpMins             = "PROSUPPLY_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "PROSUPPLY_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "PROSUPPLY_GCP_PROJECT_ID"
	EnvPubSubEmailTopic       = "PROSUPPLY_PUBSUB_EMAIL_TOPIC"
	EnvSurchargeFactor        = "PROSUPPLY_ORDERS_COMBINED_SURCHARGE_FACTOR"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
