package config

// EnvPrefix scopes envconfig lookups; individual fields carry explicit names.
const EnvPrefix = "KO"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "KO_APP_ENV"
	EnvDBDSN  = "KO_DB_DSN"
	EnvDBHost = "KO_DB_HOST"
	EnvDBUser = "KO_DB_USER"
	EnvDBName = "KO_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
