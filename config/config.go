package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Database drivers accepted in DB_DRIVER.
const (
	DriverMongo    = "mongo"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Image stores accepted in IMAGE_STORE.
const (
	ImageStoreLocal      = "local"
	ImageStoreCloudinary = "cloudinary"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	TokenTTLHours      int
	RateLimitPerMinute int
	AllowedOrigins     []string
	AdminEmails        []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database
	DBDriver    string
	DatabaseURI string
	DBName      string
	// Redis for caching, token revocation and OAuth state. Empty host disables it.
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Images
	ImageStore       string
	UploadDir        string
	UploadBaseURL    string
	MaxUploadMB      int
	CloudinaryName   string
	CloudinaryKey    string
	CloudinarySecret string
	// OAuth sign-in
	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectBase  string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// A missing .env is fine; real deployments use the environment directly.
	_ = godotenv.Load()

	c, err := build(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatal(err)
	}

	cfg = c
	loaded = true
	return cfg
}

// build applies the precedence config/config.json -> defaults -> environment overrides.
func build(jsonPath string) (AppConfig, error) {
	var c AppConfig
	if err := loadJSONConfig(jsonPath, &c); err != nil {
		return c, err
	}
	applyDefaults(&c)
	if err := applyEnvOverrides(&c); err != nil {
		return c, err
	}
	if c.JWTSecret == "" {
		return c, errors.New("JWT_SECRET must be set in environment variables")
	}
	switch c.DBDriver {
	case DriverMongo, DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return c, errors.New("unsupported DB_DRIVER " + strconv.Quote(c.DBDriver))
	}
	switch c.ImageStore {
	case ImageStoreLocal, ImageStoreCloudinary:
	default:
		return c, errors.New("unsupported IMAGE_STORE " + strconv.Quote(c.ImageStore))
	}
	return c, nil
}

// IsAdminEmail reports whether accounts registered with email get the Admin role.
func (c AppConfig) IsAdminEmail(email string) bool {
	for _, e := range c.AdminEmails {
		if strings.EqualFold(e, email) {
			return true
		}
	}
	return false
}

// RedisEnabled reports whether a Redis host is configured.
func (c AppConfig) RedisEnabled() bool {
	return c.RedisHost != ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads grouped JSON sections into out if the file is present.
// Returns an error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			if f, ok := v.(float64); ok {
				return int(f)
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		out.TokenTTLHours = getInt(app, "TokenTTLHours")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		out.AllowedOrigins = getStringSlice(app, "AllowedOrigins")
		out.AdminEmails = getStringSlice(app, "AdminEmails")
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		out.GinMode = getString(g, "Mode")
		out.GinPath = getString(g, "LogPath")
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DBDriver = getString(dbs, "Driver")
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if img, ok := raw["images"].(map[string]any); ok {
		out.ImageStore = getString(img, "Store")
		out.UploadDir = getString(img, "UploadDir")
		out.UploadBaseURL = getString(img, "UploadBaseURL")
		out.MaxUploadMB = getInt(img, "MaxUploadMB")
		out.CloudinaryName = getString(img, "CloudinaryName")
		out.CloudinaryKey = getString(img, "CloudinaryKey")
		out.CloudinarySecret = getString(img, "CloudinarySecret")
	}

	if oa, ok := raw["oauth"].(map[string]any); ok {
		out.GitHubClientID = getString(oa, "GitHubClientID")
		out.GitHubClientSecret = getString(oa, "GitHubClientSecret")
		out.GoogleClientID = getString(oa, "GoogleClientID")
		out.GoogleClientSecret = getString(oa, "GoogleClientSecret")
		out.OAuthRedirectBase = getString(oa, "RedirectBase")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8000"
	}
	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = 24
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBDriver == "" {
		c.DBDriver = DriverMongo
	}
	if c.DBName == "" {
		c.DBName = "connectbuzz"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.ImageStore == "" {
		c.ImageStore = ImageStoreLocal
	}
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
	if c.UploadBaseURL == "" {
		c.UploadBaseURL = "/uploads"
	}
	if c.MaxUploadMB == 0 {
		c.MaxUploadMB = 10
	}
	if c.OAuthRedirectBase == "" {
		c.OAuthRedirectBase = "http://localhost:8000"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogPath == "" {
		c.LogPath = "logs/app.log"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) error {
	strs := []struct {
		keys []string
		dst  *string
	}{
		{[]string{"APP_PORT", "PORT"}, &c.AppPort},
		{[]string{"JWT_SECRET"}, &c.JWTSecret},
		{[]string{"GIN_MODE"}, &c.GinMode},
		{[]string{"GIN_PATH"}, &c.GinPath},
		{[]string{"DB_DRIVER"}, &c.DBDriver},
		{[]string{"DATABASE_URI", "DB"}, &c.DatabaseURI},
		{[]string{"DB_NAME"}, &c.DBName},
		{[]string{"REDIS_HOST"}, &c.RedisHost},
		{[]string{"REDIS_PASSWORD"}, &c.RedisPassword},
		{[]string{"IMAGE_STORE"}, &c.ImageStore},
		{[]string{"UPLOAD_DIR"}, &c.UploadDir},
		{[]string{"UPLOAD_BASE_URL"}, &c.UploadBaseURL},
		{[]string{"CLOUDINARY_NAME"}, &c.CloudinaryName},
		{[]string{"CLOUDINARY_KEY"}, &c.CloudinaryKey},
		{[]string{"CLOUDINARY_SECRET"}, &c.CloudinarySecret},
		{[]string{"GITHUB_CLIENT_ID"}, &c.GitHubClientID},
		{[]string{"GITHUB_CLIENT_SECRET"}, &c.GitHubClientSecret},
		{[]string{"GOOGLE_CLIENT_ID"}, &c.GoogleClientID},
		{[]string{"GOOGLE_CLIENT_SECRET"}, &c.GoogleClientSecret},
		{[]string{"OAUTH_REDIRECT_BASE_URL"}, &c.OAuthRedirectBase},
		{[]string{"LOG_LEVEL"}, &c.LogLevel},
		{[]string{"LOG_PATH"}, &c.LogPath},
	}
	for _, s := range strs {
		for _, k := range s.keys {
			if v := getEnv(k, ""); v != "" {
				*s.dst = v
				break
			}
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"TOKEN_TTL_HOURS", &c.TokenTTLHours},
		{"RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute},
		{"REDIS_PORT", &c.RedisPort},
		{"REDIS_DB", &c.RedisDB},
		{"MAX_UPLOAD_MB", &c.MaxUploadMB},
		{"LOG_MAX_SIZE_MB", &c.LogMaxSizeMB},
		{"LOG_MAX_BACKUPS", &c.LogMaxBackups},
		{"LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays},
	}
	for _, i := range ints {
		if v := getEnv(i.key, ""); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return errors.New("invalid integer value for " + i.key + ": " + v)
			}
			*i.dst = n
		}
	}

	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "1" || strings.EqualFold(v, "true")
	}
	c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", readListEnv("CLIENT_URL", c.AllowedOrigins))
	c.AdminEmails = readListEnv("ADMIN_EMAILS", c.AdminEmails)
	return nil
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
