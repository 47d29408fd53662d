// Package config reads the service settings from flags and AUCTION_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/floroz/gavel-listings/internal/domain/bids"
	"github.com/floroz/gavel-listings/internal/domain/listings"
	"github.com/floroz/gavel-listings/internal/domain/watchlist"
	"github.com/floroz/gavel-listings/pkg/events"
)

const EnvPrefix = "AUCTION"

type Config struct {
	HTTPAddr string

	DB       DBConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Auth     AuthConfig
	Session  SessionConfig
	Relay    events.RelayConfig

	MigrationsDir  string
	MigrateOnStart bool

	Listings  listings.Policy
	Bids      bids.Policy
	Watchlist watchlist.Policy
}

type DBConfig struct {
	URL         string
	LockTimeout time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RabbitMQConfig struct {
	URL string
}

type AuthConfig struct {
	PrivateKeyPath string
	PublicKeyPath  string
	Issuer         string
}

type SessionConfig struct {
	TTL          time.Duration
	CookieName   string
	CookieSecure bool
	LoginURL     string
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)

	// server
	fs.String("http-addr", ":8080", "listen address")

	// storage
	fs.String("db-url", "", "postgres connection string")
	fs.Duration("db-lock-timeout", 5*time.Second, "lock_timeout for write transactions")
	fs.String("migrations-dir", "migrations", "goose migrations directory")
	fs.Bool("migrate-on-start", false, "apply migrations before serving")

	// redis
	fs.String("redis-addr", "", "")
	fs.String("redis-password", "", "")
	fs.Int("redis-db", 0, "")

	// rabbitmq
	fs.String("rabbitmq-url", "", "")
	fs.Int("relay-batch-size", 10, "outbox events published per poll")
	fs.Duration("relay-interval", time.Second, "outbox poll interval")

	// auth
	fs.String("auth-private-key-path", "", "RSA private key (PEM)")
	fs.String("auth-public-key-path", "", "RSA public key (PEM)")
	fs.String("auth-issuer", "gavel-listings", "")
	fs.Duration("session-ttl", 14*24*time.Hour, "")
	fs.String("session-cookie", "auction_session", "")
	fs.Bool("session-cookie-secure", false, "")
	fs.String("login-url", "/login", "")

	// policies
	fs.Int("bid-retries", bids.DefaultPolicy().MaxRetries, "retries after losing a concurrent bid")
	fs.Bool("policy-owner-only-status", listings.DefaultPolicy().OwnerOnlyStatusChange, "only authors may close or reopen")
	fs.Bool("policy-scope-watchlist-removal", watchlist.DefaultPolicy().ScopeRemovalToUser, "remove only the caller's watchlist entries")
	fs.Bool("policy-unique-watchlist", watchlist.DefaultPolicy().UniqueEntries, "ignore duplicate watchlist adds")
	fs.Bool("policy-reject-bids-on-closed", bids.DefaultPolicy().RejectClosedListings, "refuse bids on closed listings")

	return fs
}

// Load parses args (without the program name) over the environment
func Load(name string, args []string) (Config, error) {
	fs := newFlagSet(name)
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("failed to parse flags: %w", err)
	}

	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return Config{}, fmt.Errorf("failed to bind flags: %w", err)
	}
	v.AutomaticEnv()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	return Config{
		HTTPAddr: v.GetString("http-addr"),
		DB: DBConfig{
			URL:         v.GetString("db-url"),
			LockTimeout: v.GetDuration("db-lock-timeout"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis-addr"),
			Password: v.GetString("redis-password"),
			DB:       v.GetInt("redis-db"),
		},
		RabbitMQ: RabbitMQConfig{
			URL: v.GetString("rabbitmq-url"),
		},
		Auth: AuthConfig{
			PrivateKeyPath: v.GetString("auth-private-key-path"),
			PublicKeyPath:  v.GetString("auth-public-key-path"),
			Issuer:         v.GetString("auth-issuer"),
		},
		Session: SessionConfig{
			TTL:          v.GetDuration("session-ttl"),
			CookieName:   v.GetString("session-cookie"),
			CookieSecure: v.GetBool("session-cookie-secure"),
			LoginURL:     v.GetString("login-url"),
		},
		Relay: events.RelayConfig{
			BatchSize: v.GetInt("relay-batch-size"),
			Interval:  v.GetDuration("relay-interval"),
			Exchange:  events.DefaultExchange,
		},
		MigrationsDir:  v.GetString("migrations-dir"),
		MigrateOnStart: v.GetBool("migrate-on-start"),
		Listings: listings.Policy{
			OwnerOnlyStatusChange: v.GetBool("policy-owner-only-status"),
		},
		Bids: bids.Policy{
			RejectClosedListings: v.GetBool("policy-reject-bids-on-closed"),
			MaxRetries:           v.GetInt("bid-retries"),
		},
		Watchlist: watchlist.Policy{
			UniqueEntries:      v.GetBool("policy-unique-watchlist"),
			ScopeRemovalToUser: v.GetBool("policy-scope-watchlist-removal"),
		},
	}, nil
}

// ValidateAPI reports the settings the web server cannot start without
func (c Config) ValidateAPI() error {
	var errs []error
	if c.DB.URL == "" {
		errs = append(errs, errors.New("db-url is required"))
	}
	if c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis-addr is required"))
	}
	if c.Auth.PrivateKeyPath == "" || c.Auth.PublicKeyPath == "" {
		errs = append(errs, errors.New("auth-private-key-path and auth-public-key-path are required"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session-ttl must be positive"))
	}
	if c.Session.CookieName == "" {
		errs = append(errs, errors.New("session-cookie is required"))
	}
	return errors.Join(errs...)
}

// ValidateWorker reports the settings the relay and consumer need
func (c Config) ValidateWorker() error {
	var errs []error
	if c.DB.URL == "" {
		errs = append(errs, errors.New("db-url is required"))
	}
	if c.RabbitMQ.URL == "" {
		errs = append(errs, errors.New("rabbitmq-url is required"))
	}
	return errors.Join(errs...)
}
