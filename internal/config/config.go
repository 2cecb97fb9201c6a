package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed cameras.yaml
var camerasYAML []byte

type Config struct {
	Database    DatabaseConfig
	ObjectStore ObjectStoreConfig
	Vision      VisionConfig
	Email       EmailConfig
	Overstay    OverstayConfig
	Web         WebConfig
	Cameras     CamerasConfig
	Timezone    string // IANA zone of capture timestamps and the sweep clock
	LogLevel    string
}

type DatabaseConfig struct {
	URL          string        // MySQL DSN, or postgres:// URL for the PostgreSQL backend
	MaxOpenConns int           // Maximum open connections (default 25)
	MaxIdleConns int           // Maximum idle connections (default 5)
	Timeout      time.Duration // Upper bound for a single store call (default 10s)
}

// IsPostgres reports whether the URL selects the PostgreSQL backend.
func (c *DatabaseConfig) IsPostgres() bool {
	return strings.HasPrefix(c.URL, "postgres://") || strings.HasPrefix(c.URL, "postgresql://")
}

type ObjectStoreConfig struct {
	Dir    string // root directory; buckets are subdirectories (default ./data/objects)
	Bucket string // bucket the capture devices upload into (default gatex-uploads)
}

type VisionConfig struct {
	Provider    string // "openai" (default) or "gemini"
	OpenAIToken string
	GeminiKey   string
}

type EmailConfig struct {
	ResendAPIKey  string // empty means alerts are only logged
	FromEmail     string
	FromName      string
	FallbackEmail string // receives alerts for devices without a customer mapping
}

type OverstayConfig struct {
	Threshold time.Duration // default 2h
	Interval  time.Duration // default 5m
}

type WebConfig struct {
	Host           string
	Port           int
	APIToken       string   // bearer token for /api/v1 writes; empty disables the check
	AllowedOrigins []string // CORS origins for the query endpoints
	IngestPerMin   int      // POST /facts requests per minute per client IP
}

// CamerasConfig maps camera numbers from the image identifier to the role
// that camera plays at the site ("id", "face" or "plate").
type CamerasConfig struct {
	Roles map[int]string `yaml:"cameras"`
}

var validRoles = map[string]bool{"id": true, "face": true, "plate": true}

// Validate checks that every role is known and that an id camera exists,
// since exit detection depends on it.
func (c *CamerasConfig) Validate() error {
	if len(c.Roles) == 0 {
		return fmt.Errorf("camera role table is empty")
	}
	hasID := false
	for num, role := range c.Roles {
		if num < 0 {
			return fmt.Errorf("camera number %d is negative", num)
		}
		if !validRoles[role] {
			return fmt.Errorf("camera %d has unknown role %q", num, role)
		}
		if role == "id" {
			hasID = true
		}
	}
	if !hasID {
		return fmt.Errorf("camera role table has no id camera")
	}
	return nil
}

// ParseCameras decodes a camera role table from YAML.
func ParseCameras(data []byte) (CamerasConfig, error) {
	var cams CamerasConfig
	if err := yaml.Unmarshal(data, &cams); err != nil {
		return CamerasConfig{}, fmt.Errorf("parse camera roles: %w", err)
	}
	for num, role := range cams.Roles {
		cams.Roles[num] = strings.ToLower(strings.TrimSpace(role))
	}
	if err := cams.Validate(); err != nil {
		return CamerasConfig{}, err
	}
	return cams, nil
}

// DefaultCameras returns the embedded camera role table.
func DefaultCameras() CamerasConfig {
	cams, err := ParseCameras(camerasYAML)
	if err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to parse embedded cameras.yaml: " + err.Error())
	}
	return cams
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Load reads configuration from the environment. The camera role table comes
// from CAMERA_ROLES_FILE when set, otherwise from the embedded default.
func Load() (*Config, error) {
	cams := DefaultCameras()
	if path := os.Getenv("CAMERA_ROLES_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read camera roles file: %w", err)
		}
		if cams, err = ParseCameras(data); err != nil {
			return nil, fmt.Errorf("camera roles file %s: %w", path, err)
		}
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
			Timeout:      time.Duration(envInt("DATABASE_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		ObjectStore: ObjectStoreConfig{
			Dir:    envString("OBJECT_STORE_DIR", "./data/objects"),
			Bucket: envString("OBJECT_STORE_BUCKET", "gatex-uploads"),
		},
		Vision: VisionConfig{
			Provider:    strings.ToLower(envString("VISION_PROVIDER", "openai")),
			OpenAIToken: os.Getenv("OPENAI_TOKEN"),
			GeminiKey:   os.Getenv("GEMINI_API_KEY"),
		},
		Email: EmailConfig{
			ResendAPIKey:  os.Getenv("RESEND_API_KEY"),
			FromEmail:     envString("ALERT_FROM_EMAIL", "alerts@gatex.local"),
			FromName:      envString("ALERT_FROM_NAME", "Gatex"),
			FallbackEmail: os.Getenv("ALERT_FALLBACK_EMAIL"),
		},
		Overstay: OverstayConfig{
			Threshold: time.Duration(envInt("OVERSTAY_THRESHOLD_MINUTES", 120)) * time.Minute,
			Interval:  time.Duration(envInt("OVERSTAY_INTERVAL_SECONDS", 300)) * time.Second,
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			APIToken:       os.Getenv("WEB_API_TOKEN"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
			IngestPerMin:   envInt("WEB_INGEST_PER_MINUTE", 600),
		},
		Cameras:  cams,
		Timezone: envString("TIMEZONE", "Asia/Dubai"),
		LogLevel: envString("LOG_LEVEL", "info"),
	}, nil
}

// Location resolves the configured timezone, falling back to UTC when the
// zone database does not know it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
