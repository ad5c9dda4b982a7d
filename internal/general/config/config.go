package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zones resolve on hosts without a zoneinfo database

	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	NotifyDirect = "direct" // SMS / email senders run in-process
	NotifyQueue  = "queue"  // commands go to RabbitMQ, notification-service delivers
	NotifyOff    = "off"
)

type Config struct {
	Storage struct {
		Driver string
	}
	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string // YAML key: "database"
		SSLMode  string
		MaxConns int
	}
	RabbitMQ struct {
		Host     string
		Port     int
		User     string
		Password string
		Prefetch int
	}
	Events struct {
		Broker          bool // also publish lifecycle events to the valet_events exchange
		DeliveryTimeout time.Duration
	}
	WebSocket struct {
		AuthTimeout  time.Duration
		PingInterval time.Duration
	}
	Services struct {
		BookingServicePort      int
		NotificationServicePort int
		DashboardServicePort    int
	}
	JWT struct {
		SecretKey string
		AccessTTL time.Duration
	}
	Notifications struct {
		Mode        string
		SinkTimeout time.Duration
		MSG91       struct {
			AuthKey  string
			SenderID string
			BaseURL  string
		}
		Email struct {
			APIKey   string
			BaseURL  string
			From     string
			FromName string
		}
	}
	Links struct {
		CustomerBaseURL string
	}
	Images struct {
		Dir      string
		MaxBytes int64
		MaxFiles int
	}
	Dashboard struct {
		Timezone string // IANA zone that "today" is computed in
	}
}

// LoadFromFile loads config from a YAML file to a Config struct, applies .env and
// environment overrides, applies defaults, and validates required fields.
func LoadFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()
	return load(file)
}

// Load is LoadFromFile that tolerates a missing file: defaults and the environment
// are enough to run the in-memory booking service.
func Load(path string) (*Config, error) {
	cfg, err := LoadFromFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return load(strings.NewReader(""))
	}
	return cfg, err
}

func load(r io.Reader) (*Config, error) {
	// a missing .env is the normal case outside development
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	doc, err := parseYAML(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	var cfg Config
	if err := cfg.bind(doc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// fields maps every section.key onto its destination.
// Destinations are *string, *int, *int64, *bool or *time.Duration.
func (c *Config) fields() map[string]map[string]any {
	n := &c.Notifications
	return map[string]map[string]any{
		"storage": {
			"driver": &c.Storage.Driver,
		},
		"database": {
			"host":      &c.Database.Host,
			"port":      &c.Database.Port,
			"user":      &c.Database.User,
			"password":  &c.Database.Password,
			"database":  &c.Database.Name,
			"sslmode":   &c.Database.SSLMode,
			"max_conns": &c.Database.MaxConns,
		},
		"rabbitmq": {
			"host":     &c.RabbitMQ.Host,
			"port":     &c.RabbitMQ.Port,
			"user":     &c.RabbitMQ.User,
			"password": &c.RabbitMQ.Password,
			"prefetch": &c.RabbitMQ.Prefetch,
		},
		"events": {
			"broker":           &c.Events.Broker,
			"delivery_timeout": &c.Events.DeliveryTimeout,
		},
		"websocket": {
			"auth_timeout":  &c.WebSocket.AuthTimeout,
			"ping_interval": &c.WebSocket.PingInterval,
		},
		"services": {
			"booking_service":      &c.Services.BookingServicePort,
			"notification_service": &c.Services.NotificationServicePort,
			"dashboard_service":    &c.Services.DashboardServicePort,
		},
		"jwt": {
			"secret_key": &c.JWT.SecretKey,
			"access_ttl": &c.JWT.AccessTTL,
		},
		"notifications": {
			"mode":            &n.Mode,
			"sink_timeout":    &n.SinkTimeout,
			"msg91_auth_key":  &n.MSG91.AuthKey,
			"msg91_sender_id": &n.MSG91.SenderID,
			"msg91_base_url":  &n.MSG91.BaseURL,
			"email_api_key":   &n.Email.APIKey,
			"email_base_url":  &n.Email.BaseURL,
			"email_from":      &n.Email.From,
			"email_from_name": &n.Email.FromName,
		},
		"links": {
			"customer_base_url": &c.Links.CustomerBaseURL,
		},
		"images": {
			"dir":       &c.Images.Dir,
			"max_bytes": &c.Images.MaxBytes,
			"max_files": &c.Images.MaxFiles,
		},
		"dashboard": {
			"timezone": &c.Dashboard.Timezone,
		},
	}
}

// bind copies parsed scalars into the struct, rejecting unknown sections and keys.
func (c *Config) bind(doc document) error {
	fields := c.fields()
	for section, keys := range doc {
		known, ok := fields[section]
		if !ok {
			return fmt.Errorf("unknown top-level key %q", section)
		}
		for key, sc := range keys {
			dst, ok := known[key]
			if !ok {
				return fmt.Errorf("line %d: unknown key in %s: %q", sc.line, section, key)
			}
			if err := assign(dst, sc.val); err != nil {
				return fmt.Errorf("line %d: %s.%s %v", sc.line, section, key, err)
			}
		}
	}
	return nil
}

// envOverrides maps environment variables onto section.key pairs. Secrets are
// expected to arrive this way rather than through the file.
var envOverrides = []struct{ env, section, key string }{
	{"VALET_STORAGE", "storage", "driver"},
	{"VALET_DB_HOST", "database", "host"},
	{"VALET_DB_PORT", "database", "port"},
	{"VALET_DB_USER", "database", "user"},
	{"VALET_DB_PASSWORD", "database", "password"},
	{"VALET_DB_NAME", "database", "database"},
	{"VALET_RABBITMQ_HOST", "rabbitmq", "host"},
	{"VALET_RABBITMQ_USER", "rabbitmq", "user"},
	{"VALET_RABBITMQ_PASSWORD", "rabbitmq", "password"},
	{"VALET_JWT_SECRET", "jwt", "secret_key"},
	{"VALET_NOTIFICATIONS_MODE", "notifications", "mode"},
	{"MSG91_AUTH_KEY", "notifications", "msg91_auth_key"},
	{"MSG91_SENDER_ID", "notifications", "msg91_sender_id"},
	{"BREVO_API_KEY", "notifications", "email_api_key"},
	{"EMAIL_FROM", "notifications", "email_from"},
	{"EMAIL_FROM_NAME", "notifications", "email_from_name"},
	{"FRONTEND_URL", "links", "customer_base_url"},
	{"VALET_IMAGES_DIR", "images", "dir"},
	{"VALET_TIMEZONE", "dashboard", "timezone"},
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	fields := c.fields()
	for _, o := range envOverrides {
		v, ok := lookup(o.env)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if err := assign(fields[o.section][o.key], strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("%s %v", o.env, err)
		}
	}
	return nil
}

func assign(dst any, val string) error {
	switch p := dst.(type) {
	case *string:
		*p = val
	case *int:
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("must be int: %v", err)
		}
		*p = n
	case *int64:
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("must be int: %v", err)
		}
		*p = n
	case *bool:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("must be bool: %v", err)
		}
		*p = b
	case *time.Duration:
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("must be a duration: %v", err)
		}
		*p = d
	default:
		return fmt.Errorf("unsupported destination %T", dst)
	}
	return nil
}

// applyDefaults sets safe defaults for some fields.
func applyDefaults(cfg *Config) {
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = StorageMemory
	}

	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}

	// RabbitMQ
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}
	if cfg.RabbitMQ.Prefetch == 0 {
		cfg.RabbitMQ.Prefetch = 8
	}

	if cfg.Events.DeliveryTimeout == 0 {
		cfg.Events.DeliveryTimeout = 2 * time.Second
	}
	if cfg.WebSocket.AuthTimeout == 0 {
		cfg.WebSocket.AuthTimeout = 10 * time.Second
	}
	if cfg.WebSocket.PingInterval == 0 {
		cfg.WebSocket.PingInterval = 30 * time.Second
	}

	// Services
	if cfg.Services.BookingServicePort == 0 {
		cfg.Services.BookingServicePort = 3000
	}
	if cfg.Services.NotificationServicePort == 0 {
		cfg.Services.NotificationServicePort = 3002
	}
	if cfg.Services.DashboardServicePort == 0 {
		cfg.Services.DashboardServicePort = 3004
	}

	if cfg.JWT.SecretKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			key = []byte(fmt.Sprintf("%d", time.Now().UnixNano()))
		}
		cfg.JWT.SecretKey = base64.StdEncoding.EncodeToString(key)
	}
	if cfg.JWT.AccessTTL == 0 {
		cfg.JWT.AccessTTL = 2 * time.Hour
	}

	n := &cfg.Notifications
	if n.Mode == "" {
		n.Mode = NotifyDirect
	}
	if n.SinkTimeout == 0 {
		n.SinkTimeout = 5 * time.Second
	}
	if n.MSG91.BaseURL == "" {
		n.MSG91.BaseURL = "https://api.msg91.com/api/sendhttp.php"
	}
	if n.Email.BaseURL == "" {
		n.Email.BaseURL = "https://api.brevo.com/v3/smtp/email"
	}
	if n.Email.From == "" {
		n.Email.From = "no-reply@valet.local"
	}
	if n.Email.FromName == "" {
		n.Email.FromName = "Valet Parking"
	}

	if cfg.Links.CustomerBaseURL == "" {
		cfg.Links.CustomerBaseURL = "http://localhost:3000"
	}
	if cfg.Images.Dir == "" {
		cfg.Images.Dir = "uploads/vehicles"
	}
	if cfg.Images.MaxBytes == 0 {
		cfg.Images.MaxBytes = 5 << 20
	}
	if cfg.Images.MaxFiles == 0 {
		cfg.Images.MaxFiles = 4
	}
	if cfg.Dashboard.Timezone == "" {
		cfg.Dashboard.Timezone = "Asia/Kolkata"
	}
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	switch c.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		if c.Database.User == "" {
			problems = append(problems, "database.user is required")
		}
		if c.Database.Password == "" {
			problems = append(problems, "database.password is required")
		}
		if c.Database.Name == "" {
			problems = append(problems, "database.name is required")
		}
	default:
		problems = append(problems, "storage.driver must be memory or postgres")
	}
	if !validPort(c.Database.Port) {
		problems = append(problems, "database.port must be in 1..65535")
	}

	if c.NeedsBroker() {
		if c.RabbitMQ.User == "" {
			problems = append(problems, "rabbitmq.user is required")
		}
		if c.RabbitMQ.Password == "" {
			problems = append(problems, "rabbitmq.password is required")
		}
	}
	if !validPort(c.RabbitMQ.Port) {
		problems = append(problems, "rabbitmq.port must be in 1..65535")
	}
	if c.RabbitMQ.Prefetch < 1 {
		problems = append(problems, "rabbitmq.prefetch must be >= 1")
	}

	switch c.Notifications.Mode {
	case NotifyDirect, NotifyQueue, NotifyOff:
	default:
		problems = append(problems, "notifications.mode must be direct, queue or off")
	}
	if c.Notifications.SinkTimeout < 0 || c.Events.DeliveryTimeout < 0 {
		problems = append(problems, "timeouts must not be negative")
	}

	if !validPort(c.Services.BookingServicePort) {
		problems = append(problems, "services.booking_service must be in 1..65535")
	}
	if !validPort(c.Services.NotificationServicePort) {
		problems = append(problems, "services.notification_service must be in 1..65535")
	}
	if !validPort(c.Services.DashboardServicePort) {
		problems = append(problems, "services.dashboard_service must be in 1..65535")
	}

	if !strings.HasPrefix(c.Links.CustomerBaseURL, "http://") && !strings.HasPrefix(c.Links.CustomerBaseURL, "https://") {
		problems = append(problems, "links.customer_base_url must be an http(s) URL")
	}
	if c.Images.MaxBytes < 1 || c.Images.MaxFiles < 1 {
		problems = append(problems, "images.max_bytes and images.max_files must be >= 1")
	}
	if _, err := time.LoadLocation(c.Dashboard.Timezone); err != nil {
		problems = append(problems, "dashboard.timezone: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// NeedsBroker reports whether any component of the booking service talks to RabbitMQ.
func (c *Config) NeedsBroker() bool {
	return c.Events.Broker || c.Notifications.Mode == NotifyQueue
}

// Location returns the dashboard zone. validate has already loaded it once.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Dashboard.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}
