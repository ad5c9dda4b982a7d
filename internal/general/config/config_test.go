package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
# valet configuration
storage:
  driver: postgres
database:
  host: db.internal
  port: 5433
  user: valet
  password: "pw"   # trailing comment
  database: valet
rabbitmq:
  user: guest
  password: guest
events:
  broker: true
  delivery_timeout: 1500ms
services:
  booking_service: 8080
jwt:
  secret_key: 'dev-secret'
  access_ttl: 30m
notifications:
  mode: queue
  msg91_auth_key: abc
links:
  customer_base_url: https://valet.example.com
`

func TestLoadParsesSectionsAndDefaults(t *testing.T) {
	cfg, err := load(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "pw", cfg.Database.Password)
	assert.Equal(t, 20, cfg.Database.MaxConns)
	assert.True(t, cfg.Events.Broker)
	assert.Equal(t, 1500*time.Millisecond, cfg.Events.DeliveryTimeout)
	assert.Equal(t, 8080, cfg.Services.BookingServicePort)
	assert.Equal(t, 3004, cfg.Services.DashboardServicePort)
	assert.Equal(t, "dev-secret", cfg.JWT.SecretKey)
	assert.Equal(t, 30*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, NotifyQueue, cfg.Notifications.Mode)
	assert.Equal(t, "abc", cfg.Notifications.MSG91.AuthKey)
	assert.Equal(t, "https://api.msg91.com/api/sendhttp.php", cfg.Notifications.MSG91.BaseURL)
	assert.Equal(t, "https://valet.example.com", cfg.Links.CustomerBaseURL)
	assert.Equal(t, int64(5<<20), cfg.Images.MaxBytes)
	assert.True(t, cfg.NeedsBroker())
}

func TestLoadEmptyRunsInMemory(t *testing.T) {
	cfg, err := load(strings.NewReader(""))
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, NotifyDirect, cfg.Notifications.Mode)
	assert.NotEmpty(t, cfg.JWT.SecretKey)
	assert.Equal(t, "http://localhost:3000", cfg.Links.CustomerBaseURL)
	assert.False(t, cfg.NeedsBroker())
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("VALET_JWT_SECRET", "from-env")
	t.Setenv("FRONTEND_URL", "https://app.example.com")
	t.Setenv("VALET_DB_PORT", "6543")

	cfg, err := load(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.SecretKey)
	assert.Equal(t, "https://app.example.com", cfg.Links.CustomerBaseURL)
	assert.Equal(t, 6543, cfg.Database.Port)
}

func TestEnvOverrideBadValue(t *testing.T) {
	t.Setenv("VALET_DB_PORT", "not-a-port")
	_, err := load(strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VALET_DB_PORT")
}

func TestLoadRejectsBadInput(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
	}{
		"unknown section":  {"cache:\n  size: 1\n", `unknown top-level key "cache"`},
		"unknown key":      {"database:\n  hostname: x\n", `line 2: unknown key in database: "hostname"`},
		"bad int":          {"database:\n  port: abc\n", "database.port must be int"},
		"bad duration":     {"jwt:\n  access_ttl: forever\n", "must be a duration"},
		"duplicate":        {"jwt:\n  secret_key: a\njwt:\n  secret_key: b\n", `duplicate "jwt" section`},
		"duplicate key":    {"jwt:\n  secret_key: a\n  secret_key: b\n", "duplicate key jwt.secret_key"},
		"orphan key":       {"  port: 1\n", "key without a section"},
		"no colon":         {"jwt:\n  secret_key\n", "expected 'key: value'"},
		"postgres no user": {"storage:\n  driver: postgres\n", "database.user is required"},
		"bad storage":      {"storage:\n  driver: sqlite\n", "storage.driver must be memory or postgres"},
		"queue no broker":  {"notifications:\n  mode: queue\n", "rabbitmq.user is required"},
		"bad link":         {"links:\n  customer_base_url: valet.local\n", "links.customer_base_url"},
		"bad timezone":     {"dashboard:\n  timezone: Mars/Olympus\n", "dashboard.timezone"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := load(strings.NewReader(tc.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidateJoinsProblems(t *testing.T) {
	_, err := load(strings.NewReader("storage:\n  driver: postgres\nservices:\n  booking_service: 70000\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.user is required; database.password is required")
	assert.Contains(t, err.Error(), "services.booking_service must be in 1..65535")
}

func TestLoadMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	_, err := LoadFromFile(missing)
	require.Error(t, err)

	cfg, err := Load(missing)
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("services:\n  booking_service: 9000\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Services.BookingServicePort)
}

func TestResolveScalar(t *testing.T) {
	assert.Equal(t, "localhost", resolveScalar(` "localhost" `))
	assert.Equal(t, "password123", resolveScalar(`'password123'`))
	assert.Equal(t, "plain", resolveScalar("plain"))
	assert.Equal(t, `"`, resolveScalar(`"`))
}
