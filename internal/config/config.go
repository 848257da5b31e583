// Package config provides application configuration loaded from environment variables.
// Use the package-level Get() function to obtain the singleton Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port                 string        // e.g. "8080"
	BackofficePort       string        // e.g. "8081"
	Env                  string        // "development" | "production"
	ReadTimeout          time.Duration // default 10s
	WriteTimeout         time.Duration // default 10s
	BackofficeAllowedIPs string        // comma-separated IPs; "" = allow all
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	DSN             string        // full postgres DSN
	MaxOpenConns    int           // default 25
	MaxIdleConns    int           // default 10
	ConnMaxLifetime time.Duration // default 5m
}

// JWTConfig holds JWT signing settings.
type JWTConfig struct {
	AccessSecret  string        // must be set
	RefreshSecret string        // must be set
	AccessTTL     time.Duration // default 15m
	RefreshTTL    time.Duration // default 720h (30 days)
}

// GameConfig holds room lifecycle settings.
type GameConfig struct {
	FeePercent     int64         // platform cut of the prize pool, whole percent
	SignupBonus    int64         // rupees credited on registration; 0 disables
	WaitingRoomTTL time.Duration // waiting rooms older than this are auto-cancelled
	SweepInterval  time.Duration // stale-room sweeper period
}

// WalletConfig holds withdrawal bounds and correction retry settings.
type WalletConfig struct {
	MinWithdraw       float64       // minimum withdrawal amount (rupees)
	MaxWithdraw       float64       // maximum single withdrawal (rupees)
	CorrectionRetries int           // attempts for the winner-correction atomic unit
	CorrectionBackoff time.Duration // initial backoff between attempts, doubled each retry
	ReconcileInterval time.Duration // ledger replay sampler period; 0 disables
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	JWT    JWTConfig
	Game   GameConfig
	Wallet WalletConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// Returns the first validation error encountered.
func (c *Config) Validate() error {
	var errs []error

	// JWT secrets are mandatory
	if c.JWT.AccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET must be set"))
	}
	if c.JWT.RefreshSecret == "" {
		errs = append(errs, errors.New("JWT_REFRESH_SECRET must be set"))
	}

	// In production, DB DSN must be explicit
	if c.IsProd() && c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}

	// Fee sanity check
	if c.Game.FeePercent < 0 || c.Game.FeePercent >= 100 {
		errs = append(errs, fmt.Errorf(
			"GAME_FEE_PERCENT must be in [0, 100), got %d", c.Game.FeePercent,
		))
	}

	if c.Wallet.MinWithdraw <= 0 || c.Wallet.MaxWithdraw < c.Wallet.MinWithdraw {
		errs = append(errs, fmt.Errorf(
			"withdrawal bounds invalid: min=%.2f max=%.2f",
			c.Wallet.MinWithdraw, c.Wallet.MaxWithdraw,
		))
	}

	if c.Wallet.CorrectionRetries < 1 {
		errs = append(errs, fmt.Errorf(
			"CORRECTION_MAX_RETRIES must be at least 1, got %d", c.Wallet.CorrectionRetries,
		))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment variables.
// Panics if loading fails — call this early in main() to catch misconfigurations
// at startup.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

func load() (*Config, error) {
	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	cfg.Server = ServerConfig{
		Port:                 getEnv("SERVER_PORT", "8080"),
		BackofficePort:       getEnv("BACKOFFICE_PORT", "8081"),
		Env:                  getEnv("ENVIRONMENT", "development"),
		ReadTimeout:          getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:         getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
		BackofficeAllowedIPs: getEnv("BACKOFFICE_ALLOWED_IPS", ""),
	}

	// ── Database ──────────────────────────────────────────────────────────────
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		// Build DSN from individual components for convenience in dev
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "khelzone_gameroom"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.DB = DBConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	// ── JWT ───────────────────────────────────────────────────────────────────
	cfg.JWT = JWTConfig{
		AccessSecret:  getEnv("JWT_ACCESS_SECRET", ""),
		RefreshSecret: getEnv("JWT_REFRESH_SECRET", ""),
		AccessTTL:     getDuration("JWT_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:    getDuration("JWT_REFRESH_TTL", 30*24*time.Hour),
	}

	// ── Game ──────────────────────────────────────────────────────────────────
	feePct, err := getInt("GAME_FEE_PERCENT", 10)
	if err != nil {
		return nil, fmt.Errorf("GAME_FEE_PERCENT: %w", err)
	}
	bonus, err := getInt("GAME_SIGNUP_BONUS", 50)
	if err != nil {
		return nil, fmt.Errorf("GAME_SIGNUP_BONUS: %w", err)
	}

	cfg.Game = GameConfig{
		FeePercent:     int64(feePct),
		SignupBonus:    int64(bonus),
		WaitingRoomTTL: getDuration("GAME_WAITING_ROOM_TTL", 30*time.Minute),
		SweepInterval:  getDuration("GAME_SWEEP_INTERVAL", time.Minute),
	}

	// ── Wallet ────────────────────────────────────────────────────────────────
	minW, err := getFloat("WALLET_MIN_WITHDRAW", 100)
	if err != nil {
		return nil, fmt.Errorf("WALLET_MIN_WITHDRAW: %w", err)
	}
	maxW, err := getFloat("WALLET_MAX_WITHDRAW", 50000)
	if err != nil {
		return nil, fmt.Errorf("WALLET_MAX_WITHDRAW: %w", err)
	}
	retries, err := getInt("CORRECTION_MAX_RETRIES", 3)
	if err != nil {
		return nil, fmt.Errorf("CORRECTION_MAX_RETRIES: %w", err)
	}

	cfg.Wallet = WalletConfig{
		MinWithdraw:       minW,
		MaxWithdraw:       maxW,
		CorrectionRetries: retries,
		CorrectionBackoff: getDuration("CORRECTION_BACKOFF", 100*time.Millisecond),
		ReconcileInterval: getDuration("WALLET_RECONCILE_INTERVAL", 10*time.Minute),
	}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float %q", v)
	}
	return f, nil
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
// Falls back to defaultVal if the variable is unset or empty.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Fall back to default; do not crash on parse error
		return defaultVal
	}
	return d
}
