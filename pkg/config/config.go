package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	API          APIConfig
	DB           DBConfig
	Redis        RedisConfig
	Kaspi        KaspiConfig
	BusinessDay  BusinessDayConfig
	Fees         FeesConfig
	Cache        CacheConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	// Keys are spelled out in full on each field, so no prefix here.
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !cfg.FeatureFlags.UseSQLite {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"KO_APP_ENV" required:"true"`
	Port         string `envconfig:"KO_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"KO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KO_LOG_WARN_STACK" default:"false"`
	Currency     string `envconfig:"KO_CURRENCY" default:"KZT"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// APIConfig holds HTTP surface settings.
type APIConfig struct {
	CORSOrigins     []string      `envconfig:"KO_CORS_ORIGINS"`
	ReadTimeout     time.Duration `envconfig:"KO_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"KO_HTTP_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"KO_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
}

type DBConfig struct {
	DSN    string `envconfig:"KO_DB_DSN"`
	Driver string `envconfig:"KO_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"KO_DB_HOST"`
	Port     int    `envconfig:"KO_DB_PORT" default:"5432"`
	User     string `envconfig:"KO_DB_USER"`
	Password string `envconfig:"KO_DB_PASSWORD"`
	Name     string `envconfig:"KO_DB_NAME"`
	SSLMode  string `envconfig:"KO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"KO_REDIS_ADDR"`
	Password     string        `envconfig:"KO_REDIS_PASSWORD"`
	DB           int           `envconfig:"KO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// KaspiConfig carries the upstream marketplace API settings.
type KaspiConfig struct {
	BaseURL        string        `envconfig:"KO_KASPI_BASE_URL" default:"https://kaspi.kz/shop/api/v2"`
	Token          string        `envconfig:"KO_KASPI_TOKEN" required:"true"`
	PageSize       int           `envconfig:"KO_KASPI_PAGE_SIZE" default:"100"`
	ChunkDays      int           `envconfig:"KO_KASPI_CHUNK_DAYS" default:"7"`
	ChunkWorkers   int           `envconfig:"KO_KASPI_CHUNK_WORKERS" default:"3"`
	MaxAttempts    int           `envconfig:"KO_KASPI_MAX_ATTEMPTS" default:"4"`
	BackoffBase    time.Duration `envconfig:"KO_KASPI_BACKOFF_BASE" default:"1s"`
	BackoffCap     time.Duration `envconfig:"KO_KASPI_BACKOFF_CAP" default:"8s"`
	ConnectTimeout time.Duration `envconfig:"KO_KASPI_CONNECT_TIMEOUT" default:"10s"`
	RequestTimeout time.Duration `envconfig:"KO_KASPI_REQUEST_TIMEOUT" default:"20s"`
	AmountDivisor  int64         `envconfig:"KO_KASPI_AMOUNT_DIVISOR" default:"1"`
}

// BusinessDayConfig holds defaults applied when the store has no persisted rule.
type BusinessDayConfig struct {
	Cutoff       string `envconfig:"KO_DAY_CUTOFF" default:"20:00"`
	LookbackDays int    `envconfig:"KO_LOOKBACK_DAYS" default:"3"`
	Timezone     string `envconfig:"KO_TZ" default:"Asia/Almaty"`
}

// FeesConfig holds the default fee configuration when the store has none persisted.
type FeesConfig struct {
	CommissionPercent string `envconfig:"KO_FEE_COMMISSION_PERCENT" default:"12"`
	AcquiringPercent  string `envconfig:"KO_FEE_ACQUIRING_PERCENT" default:"0"`
	DeliveryFixed     string `envconfig:"KO_FEE_DELIVERY_FIXED" default:"0"`
	OtherFixed        string `envconfig:"KO_FEE_OTHER_FIXED" default:"0"`
}

type CacheConfig struct {
	TTL time.Duration `envconfig:"KO_CACHE_TTL" default:"300s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool   `envconfig:"KO_USE_SQLITE" default:"false"`
	SQLitePath  string `envconfig:"KO_SQLITE_PATH" default:"kaspi-orders.db"`
	AutoMigrate bool   `envconfig:"KO_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
