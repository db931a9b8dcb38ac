// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"erpstock/internal/infrastructure/storage/postgres/erp_repo"
	"erpstock/pkg/logger"
)

// DefaultBusinessUnit is the business unit served when FIXED_BUSINESS_UNIT is unset.
const DefaultBusinessUnit = "9301000050"

var businessUnitRe = regexp.MustCompile(`^[A-Za-z0-9 _-]+$`)

// Config is the full service configuration.
type Config struct {
	Env  string
	Port string

	DB           DBConfig
	Layout       erp_repo.Layout
	BusinessUnit string

	Auth AuthConfig
	CORS CORSConfig
	Log  logger.Config
}

// DBConfig holds connection settings for the ERP replica.
type DBConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	QueryTimeout    time.Duration
	ApplicationName string
}

// AuthConfig holds bearer token validation settings.
type AuthConfig struct {
	// JWTSecret is the HS256 signing secret. Empty means tokens are only
	// checked for presence.
	JWTSecret          string
	AllowedEmailDomain string
}

// CORSConfig lists the origins allowed to call the API. "*" allows all.
type CORSConfig struct {
	AllowedOrigins []string
}

// IsDevelopment reports whether APP_ENV is development.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads .env (if present) and the process environment.
// Variables already set in the environment win over .env.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.LookupEnv)
}

// FromEnv builds the configuration from lookup. Exposed for tests.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	e := env{lookup: lookup}

	cfg := &Config{
		Env:          e.str("APP_ENV", "production"),
		Port:         e.str("API_PORT", "8000"),
		BusinessUnit: strings.TrimSpace(e.str("FIXED_BUSINESS_UNIT", DefaultBusinessUnit)),
		DB: DBConfig{
			DSN:             e.str("JDE_PG_DSN", ""),
			MaxConns:        int32(e.int("DB_MAX_CONNS", 10)),
			MinConns:        int32(e.int("DB_MIN_CONNS", 1)),
			QueryTimeout:    e.duration("QUERY_TIMEOUT", 30*time.Second),
			ApplicationName: e.str("DB_APPLICATION_NAME", "erpstock"),
		},
		Auth: AuthConfig{
			JWTSecret:          e.str("AUTH_JWT_SECRET", e.str("SUPABASE_JWT_SECRET", "")),
			AllowedEmailDomain: strings.TrimPrefix(strings.TrimSpace(e.str("ALLOWED_EMAIL_DOMAIN", "")), "@"),
		},
		CORS: CORSConfig{
			AllowedOrigins: e.list("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
	}

	cfg.Log = logger.Config{
		Level:       e.str("LOG_LEVEL", "info"),
		Development: cfg.IsDevelopment(),
		FilePath:    e.str("LOG_FILE", ""),
		MaxSizeMB:   e.int("LOG_FILE_MAX_SIZE_MB", 50),
		MaxBackups:  e.int("LOG_FILE_MAX_BACKUPS", 5),
		MaxAgeDays:  e.int("LOG_FILE_MAX_AGE_DAYS", 14),
	}

	if cfg.DB.DSN == "" {
		cfg.DB.DSN = buildDSN(&e)
	}

	layout := erp_repo.DefaultLayout(e.str("JDE_PG_SCHEMA", ""))
	layout.StockTable = e.str("JDE_STOCK_TABLE", layout.StockTable)
	layout.ItemTable = e.str("JDE_ITEM_TABLE", layout.ItemTable)
	layout.Stock.BusinessUnit = e.str("JDE_STOCK_BU_COLUMN", layout.Stock.BusinessUnit)
	layout.Stock.ItemID = e.str("JDE_STOCK_ITEM_COLUMN", layout.Stock.ItemID)
	layout.Stock.Lot = e.str("JDE_STOCK_LOT_COLUMN", layout.Stock.Lot)
	layout.Stock.Location = e.str("JDE_STOCK_LOCATION_COLUMN", layout.Stock.Location)
	layout.Stock.OnHand = e.str("JDE_STOCK_ONHAND_COLUMN", layout.Stock.OnHand)
	layout.Item.ItemID = e.str("JDE_ITEM_ID_COLUMN", layout.Item.ItemID)
	layout.Item.LegacyCode = e.str("JDE_ITEM_CODE_COLUMN", layout.Item.LegacyCode)
	layout.Item.Description = e.str("JDE_ITEM_DESCRIPTION_COLUMN", layout.Item.Description)
	layout.Item.UnitOfMeasure = e.str("JDE_ITEM_UOM_COLUMN", layout.Item.UnitOfMeasure)
	cfg.Layout = layout

	e.errs = append(e.errs, cfg.validate()...)
	if err := errors.Join(e.errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error
	if !businessUnitRe.MatchString(c.BusinessUnit) {
		errs = append(errs, fmt.Errorf("FIXED_BUSINESS_UNIT %q must be non-empty and contain only letters, digits, spaces, '_' or '-'", c.BusinessUnit))
	}
	if err := c.Layout.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.DB.MaxConns < 1 {
		errs = append(errs, errors.New("DB_MAX_CONNS must be at least 1"))
	}
	if c.DB.MinConns < 0 || c.DB.MinConns > c.DB.MaxConns {
		errs = append(errs, errors.New("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS"))
	}
	if c.DB.QueryTimeout <= 0 {
		errs = append(errs, errors.New("QUERY_TIMEOUT must be positive"))
	}
	if c.DB.DSN == "" {
		errs = append(errs, errors.New("JDE_PG_HOST or JDE_PG_DSN must be set"))
	}
	return errs
}

// buildDSN assembles a postgres URL from the JDE_PG_* parts.
func buildDSN(e *env) string {
	host := e.str("JDE_PG_HOST", "")
	if host == "" {
		return ""
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, e.str("JDE_PG_PORT", "5432")),
		Path:   "/" + e.str("JDE_PG_DATABASE", ""),
	}
	user, pass := e.str("JDE_PG_USER", ""), e.str("JDE_PG_PASSWORD", "")
	switch {
	case user != "" && pass != "":
		u.User = url.UserPassword(user, pass)
	case user != "":
		u.User = url.User(user)
	}

	q := url.Values{}
	q.Set("sslmode", sslMode(e.str("JDE_PG_SSL", "false")))
	u.RawQuery = q.Encode()
	return u.String()
}

// sslMode maps the boolean-ish JDE_PG_SSL to a libpq sslmode.
// Explicit modes (verify-full, prefer, ...) pass through.
func sslMode(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "no", "off", "disable":
		return "disable"
	case "1", "true", "yes", "on":
		return "require"
	default:
		return strings.ToLower(strings.TrimSpace(v))
	}
}

type env struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *env) str(key, def string) string {
	if v, ok := e.lookup(key); ok && v != "" {
		return v
	}
	return def
}

func (e *env) int(key string, def int) int {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return def
	}
	return d
}

func (e *env) list(key string, def []string) []string {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
