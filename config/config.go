package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// AppConfig holds the grouped configuration sections. Secrets have no defaults and must be
// provided through config/config.json or the environment.
type AppConfig struct {
	App      AppSection      `mapstructure:"app"`
	Database DatabaseSection `mapstructure:"database"`
	Redis    RedisSection    `mapstructure:"redis"`
	Log      LogSection      `mapstructure:"log"`
	SMTP     SMTPSection     `mapstructure:"smtp"`
	OAuth    OAuthSection    `mapstructure:"oauth"`
	Admin    AdminSection    `mapstructure:"admin"`
	Contact  ContactSection  `mapstructure:"contact"`
}

type AppSection struct {
	Port               string   `mapstructure:"port"`
	JWTSecret          string   `mapstructure:"jwt_secret"`
	SessionSecret      string   `mapstructure:"session_secret"`
	SecureCookies      bool     `mapstructure:"secure_cookies"`
	RateLimitPerMinute int      `mapstructure:"rate_limit_per_minute"`
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	OAuthRedirectBase  string   `mapstructure:"oauth_redirect_base"`
	PostsPerPage       int      `mapstructure:"posts_per_page"`
	GinMode            string   `mapstructure:"gin_mode"`
	SiteName           string   `mapstructure:"site_name"`
}

type DatabaseSection struct {
	// Driver is one of mysql, postgres, sqlite.
	Driver   string `mapstructure:"driver"`
	URI      string `mapstructure:"uri"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type RedisSection struct {
	// Host left empty disables redis; caches are skipped and stores fall back to memory.
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
}

type LogSection struct {
	Level      string `mapstructure:"level"`
	Path       string `mapstructure:"path"`
	GinPath    string `mapstructure:"gin_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type SMTPSection struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
	TLS      bool   `mapstructure:"tls"`
}

type OAuthSection struct {
	GitHubClientID     string `mapstructure:"github_client_id"`
	GitHubClientSecret string `mapstructure:"github_client_secret"`
	GoogleClientID     string `mapstructure:"google_client_id"`
	GoogleClientSecret string `mapstructure:"google_client_secret"`
}

type AdminSection struct {
	Usernames []string `mapstructure:"usernames"`
}

type ContactSection struct {
	CaptchaEnabled bool     `mapstructure:"captcha_enabled"`
	NotifyEmails   []string `mapstructure:"notify_emails"`
}

var (
	cfg    AppConfig
	loaded bool
	mu     sync.RWMutex
)

// legacyEnv maps keys to the flat environment names older deployments used.
var legacyEnv = map[string]string{
	"app.port":                  "APP_PORT",
	"app.jwt_secret":            "JWT_SECRET",
	"app.gin_mode":              "GIN_MODE",
	"app.rate_limit_per_minute": "RATE_LIMIT_PER_MINUTE",
	"app.allowed_origins":       "CORS_ALLOWED_ORIGINS",
	"database.driver":           "DB_DRIVER",
	"database.uri":              "DATABASE_URI",
	"database.host":             "DB_HOST",
	"database.port":             "DB_PORT",
	"database.user":             "DB_USER",
	"database.password":         "DB_PASSWORD",
	"database.name":             "DB_NAME",
	"log.level":                 "LOG_LEVEL",
	"log.path":                  "LOG_PATH",
	"admin.usernames":           "ADMIN_USERNAMES",
}

// Load reads config/config.json (optional), applies defaults and environment overrides.
// It should be called once during boot; later calls return the cached value.
func Load() (AppConfig, error) {
	mu.Lock()
	defer mu.Unlock()
	if loaded {
		return cfg, nil
	}
	c, err := LoadFile(filepath.Join("config", "config.json"))
	if err != nil {
		return AppConfig{}, err
	}
	cfg = c
	loaded = true
	return cfg, nil
}

// LoadFile builds a configuration from the given JSON file. A missing file is not an error.
func LoadFile(path string) (AppConfig, error) {
	v := viper.New()
	v.SetConfigType("json")
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		_ = v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return AppConfig{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var out AppConfig
	if err := v.Unmarshal(&out); err != nil {
		return AppConfig{}, fmt.Errorf("decode config: %w", err)
	}
	out.App.AllowedOrigins = trimList(out.App.AllowedOrigins)
	out.Admin.Usernames = trimList(out.Admin.Usernames)
	out.Contact.NotifyEmails = trimList(out.Contact.NotifyEmails)
	return out, nil
}

// Get returns the cached configuration, loading it if necessary. Load errors are fatal at boot,
// so Get falls back to defaults when called before a successful Load.
func Get() AppConfig {
	mu.RLock()
	if loaded {
		defer mu.RUnlock()
		return cfg
	}
	mu.RUnlock()
	c, err := Load()
	if err != nil {
		c, _ = LoadFile("")
	}
	return c
}

// Set installs an explicit configuration, replacing whatever was loaded.
func Set(c AppConfig) {
	mu.Lock()
	cfg = c
	loaded = true
	mu.Unlock()
}

// Validate reports settings the HTTP server can not run without.
func (c AppConfig) Validate() error {
	if c.App.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	return nil
}

// IsAdminUsername reports whether username is configured as staff (case-insensitive).
func (c AppConfig) IsAdminUsername(username string) bool {
	uname := strings.TrimSpace(username)
	if uname == "" {
		return false
	}
	for _, u := range c.Admin.Usernames {
		if strings.EqualFold(u, uname) {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.jwt_secret", "")
	v.SetDefault("app.session_secret", "")
	v.SetDefault("app.secure_cookies", false)
	v.SetDefault("app.rate_limit_per_minute", 60)
	v.SetDefault("app.allowed_origins", []string{"*"})
	v.SetDefault("app.oauth_redirect_base", "http://localhost:8080")
	v.SetDefault("app.posts_per_page", 6)
	v.SetDefault("app.gin_mode", "release")
	v.SetDefault("app.site_name", "AddisTalk")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.uri", "")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", "3306")
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "addistalk")

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "")
	v.SetDefault("log.gin_path", "logs/gin.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("log.compress", false)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.from_name", "AddisTalk")
	v.SetDefault("smtp.tls", true)

	v.SetDefault("oauth.github_client_id", "")
	v.SetDefault("oauth.github_client_secret", "")
	v.SetDefault("oauth.google_client_id", "")
	v.SetDefault("oauth.google_client_secret", "")

	v.SetDefault("admin.usernames", []string{})

	v.SetDefault("contact.captcha_enabled", false)
	v.SetDefault("contact.notify_emails", []string{})
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
