package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names so
// the prefix only matters for fields without an envconfig tag.
const EnvPrefix = "teambase"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "TEAMBASE_APP_ENV"
	EnvPort   = "TEAMBASE_APP_PORT"

	EnvDBDSN  = "TEAMBASE_DB_DSN"
	EnvDBHost = "TEAMBASE_DB_HOST"
	EnvDBUser = "TEAMBASE_DB_USER"
	EnvDBName = "TEAMBASE_DB_NAME"

	EnvRedisURL = "TEAMBASE_REDIS_URL"

	EnvJWTSecret            = "TEAMBASE_JWT_SECRET"
	EnvJWTIssuer            = "TEAMBASE_JWT_ISSUER"
	EnvJWTExpirationMinutes = "TEAMBASE_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
