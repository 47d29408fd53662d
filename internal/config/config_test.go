package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("test", nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 5*time.Second, cfg.DB.LockTimeout)
	assert.Equal(t, "auction_session", cfg.Session.CookieName)
	assert.Equal(t, "/login", cfg.Session.LoginURL)
	assert.Equal(t, 10, cfg.Relay.BatchSize)
	assert.Equal(t, "auction.events", cfg.Relay.Exchange)

	assert.True(t, cfg.Listings.OwnerOnlyStatusChange)
	assert.True(t, cfg.Watchlist.UniqueEntries)
	assert.True(t, cfg.Watchlist.ScopeRemovalToUser)
	assert.False(t, cfg.Bids.RejectClosedListings)
	assert.Equal(t, 3, cfg.Bids.MaxRetries)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("AUCTION_DB_URL", "postgres://env")
	t.Setenv("AUCTION_SESSION_TTL", "2h")
	t.Setenv("AUCTION_POLICY_UNIQUE_WATCHLIST", "false")
	t.Setenv("AUCTION_BID_RETRIES", "7")

	cfg, err := Load("test", nil)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env", cfg.DB.URL)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.False(t, cfg.Watchlist.UniqueEntries)
	assert.Equal(t, 7, cfg.Bids.MaxRetries)
}

func TestLoadFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("AUCTION_HTTP_ADDR", ":9000")

	cfg, err := Load("test", []string{"--http-addr=:7000", "--policy-reject-bids-on-closed"})
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.HTTPAddr)
	assert.True(t, cfg.Bids.RejectClosedListings)
}

func TestLoadUnknownFlag(t *testing.T) {
	_, err := Load("test", []string{"--nope"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("test", nil)
	require.NoError(t, err)

	apiErr := cfg.ValidateAPI()
	require.Error(t, apiErr)
	assert.Contains(t, apiErr.Error(), "db-url is required")
	assert.Contains(t, apiErr.Error(), "redis-addr is required")

	assert.ErrorContains(t, cfg.ValidateWorker(), "rabbitmq-url is required")

	cfg.DB.URL = "postgres://x"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Auth.PrivateKeyPath = "priv.pem"
	cfg.Auth.PublicKeyPath = "pub.pem"
	cfg.RabbitMQ.URL = "amqp://x"
	assert.NoError(t, cfg.ValidateAPI())
	assert.NoError(t, cfg.ValidateWorker())
}
