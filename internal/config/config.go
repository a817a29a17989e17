package config

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/auth"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/rbac"
)

// EnvPrefix prefixes every environment override (POWERDESK_PORT, POWERDESK_UPSTREAM_URL, ...).
const EnvPrefix = "POWERDESK"

type Config struct {
	Port               int      `mapstructure:"port"`
	LogLevel           string   `mapstructure:"log_level"`
	LogFormat          string   `mapstructure:"log_format"` // json or console
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	TrustedProxies     []string `mapstructure:"trusted_proxies"` // peers allowed to set X-Forwarded-For; IPs or CIDRs
	RequestTimeoutSec  int      `mapstructure:"request_timeout_sec"`  // HTTP read/write
	ShutdownTimeoutSec int      `mapstructure:"shutdown_timeout_sec"` // Graceful shutdown wait
	MaxBodyBytes       int64    `mapstructure:"max_body_bytes"`

	SiteName      string `mapstructure:"site_name"`
	PolicyPath    string `mapstructure:"policy_path"` // empty = embedded policy
	UpstreamURL   string `mapstructure:"upstream_url"`
	UpstreamToken string `mapstructure:"upstream_token"`

	AuditStdout        bool   `mapstructure:"audit_stdout"`
	AuditLogPath       string `mapstructure:"audit_log_path"` // rotating JSON file; empty = off
	AuditMaxSizeMB     int    `mapstructure:"audit_max_size_mb"`
	AuditMaxBackups    int    `mapstructure:"audit_max_backups"`
	AuditMaxAgeDays    int    `mapstructure:"audit_max_age_days"`
	AuditCompress      bool   `mapstructure:"audit_compress"`
	AuditDBPath        string `mapstructure:"audit_db_path"` // SQLite audit store; empty = in-memory ring only
	AuditRetentionDays int    `mapstructure:"audit_retention_days"`
	AuditBufferSize    int    `mapstructure:"audit_buffer_size"` // events kept in memory for /api/v1/audit

	SessionSweepIntervalSec int  `mapstructure:"session_sweep_interval_sec"`
	CookieSecure            bool `mapstructure:"cookie_secure"`
	LoginRatePerMin         int  `mapstructure:"login_rate_per_min"`
	LoginRateBurst          int  `mapstructure:"login_rate_burst"`

	MetricsAuthEnabled  bool    `mapstructure:"metrics_auth_enabled"`
	TracingEndpoint     string  `mapstructure:"tracing_endpoint"` // OTLP collector; empty = tracing off
	TracingSamplingRate float64 `mapstructure:"tracing_sampling_rate"`

	// Credentials. Also read from the unprefixed variables the dashboard has always used.
	TeknisiPassword string `mapstructure:"teknisi_password"`
	AptPassword     string `mapstructure:"apt_password"`
	AdminPassword   string `mapstructure:"admin_password"`
	APITokenAdmin   string `mapstructure:"api_token_admin"`
	APITokenTeknisi string `mapstructure:"api_token_teknisi"`
	APITokenApt     string `mapstructure:"api_token_apt"`
	SecretKey       string `mapstructure:"secret_key"`
}

// ConfigurationError reports a missing or malformed setting.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

var credentialKeys = []string{
	"teknisi_password",
	"apt_password",
	"admin_password",
	"api_token_admin",
	"api_token_teknisi",
	"api_token_apt",
	"secret_key",
}

// Load reads config.yaml (or configFile when set), then environment overrides.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/powerdesk/")
		v.AddConfigPath("$HOME/.powerdesk")
		v.AddConfigPath(".")
	}

	// Defaults
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("trusted_proxies", []string{})
	v.SetDefault("request_timeout_sec", 30)
	v.SetDefault("shutdown_timeout_sec", 15)
	v.SetDefault("max_body_bytes", 64*1024)
	v.SetDefault("site_name", "JSPro PowerDesk")
	v.SetDefault("policy_path", "")
	v.SetDefault("upstream_url", "")
	v.SetDefault("upstream_token", "")
	v.SetDefault("audit_stdout", true)
	v.SetDefault("audit_log_path", "")
	v.SetDefault("audit_max_size_mb", 100)
	v.SetDefault("audit_max_backups", 10)
	v.SetDefault("audit_max_age_days", 30)
	v.SetDefault("audit_compress", true)
	v.SetDefault("audit_db_path", "")
	v.SetDefault("audit_retention_days", 90)
	v.SetDefault("audit_buffer_size", 1000)
	v.SetDefault("session_sweep_interval_sec", 300)
	v.SetDefault("cookie_secure", false)
	v.SetDefault("login_rate_per_min", 5)
	v.SetDefault("login_rate_burst", 5)
	v.SetDefault("metrics_auth_enabled", false)
	v.SetDefault("tracing_endpoint", "")
	v.SetDefault("tracing_sampling_rate", 1.0)

	// Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	for _, key := range credentialKeys {
		upper := strings.ToUpper(key)
		if err := v.BindEnv(key, EnvPrefix+"_"+upper, upper); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", upper, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; using defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings the server cannot start without. The first problem found is
// returned as a *ConfigurationError.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return &ConfigurationError{Field: "port", Reason: fmt.Sprintf("%d is out of range", c.Port)}
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return &ConfigurationError{Field: "log_format", Reason: "must be json or console"}
	}

	required := []struct {
		field string
		value string
	}{
		{"TEKNISI_PASSWORD", c.TeknisiPassword},
		{"APT_PASSWORD", c.AptPassword},
		{"ADMIN_PASSWORD", c.AdminPassword},
		{"API_TOKEN_ADMIN", c.APITokenAdmin},
		{"API_TOKEN_TEKNISI", c.APITokenTeknisi},
		{"API_TOKEN_APT", c.APITokenApt},
		{"SECRET_KEY", c.SecretKey},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ConfigurationError{Field: r.field, Reason: "not set"}
		}
	}
	if len(c.SecretKey) < auth.MinSecretKeyLength {
		return &ConfigurationError{
			Field:  "SECRET_KEY",
			Reason: fmt.Sprintf("must be at least %d characters", auth.MinSecretKeyLength),
		}
	}

	seen := make(map[string]string, 3)
	for _, t := range []struct {
		field string
		value string
	}{
		{"API_TOKEN_ADMIN", c.APITokenAdmin},
		{"API_TOKEN_TEKNISI", c.APITokenTeknisi},
		{"API_TOKEN_APT", c.APITokenApt},
	} {
		if err := auth.ValidateTokenFormat(t.value); err != nil {
			return &ConfigurationError{Field: t.field, Reason: err.Error()}
		}
		if other, dup := seen[t.value]; dup {
			return &ConfigurationError{Field: t.field, Reason: "same value as " + other}
		}
		seen[t.value] = t.field
	}

	if c.UpstreamURL != "" {
		u, err := url.Parse(c.UpstreamURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ConfigurationError{Field: "upstream_url", Reason: "must be an absolute http(s) URL"}
		}
	}
	if c.TracingSamplingRate < 0 || c.TracingSamplingRate > 1 {
		return &ConfigurationError{Field: "tracing_sampling_rate", Reason: "must be between 0 and 1"}
	}
	if c.LoginRatePerMin <= 0 || c.LoginRateBurst <= 0 {
		return &ConfigurationError{Field: "login_rate_per_min", Reason: "login rate and burst must be positive"}
	}
	if c.SessionSweepIntervalSec <= 0 {
		return &ConfigurationError{Field: "session_sweep_interval_sec", Reason: "must be positive"}
	}
	for _, p := range c.TrustedProxies {
		if s := strings.TrimSpace(p); s != "" && !validProxyEntry(s) {
			return &ConfigurationError{Field: "trusted_proxies", Reason: fmt.Sprintf("%q is not an IP address or CIDR range", p)}
		}
	}
	return nil
}

func validProxyEntry(s string) bool {
	if strings.Contains(s, "/") {
		_, err := netip.ParsePrefix(s)
		return err == nil
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}

// Users returns the three dashboard accounts.
func (c *Config) Users() []auth.UserCredential {
	return []auth.UserCredential{
		{Username: string(rbac.RoleTeknisi), Password: c.TeknisiPassword, Role: rbac.RoleTeknisi},
		{Username: string(rbac.RoleApt), Password: c.AptPassword, Role: rbac.RoleApt},
		{Username: string(rbac.RoleAdmin), Password: c.AdminPassword, Role: rbac.RoleAdmin},
	}
}

// APITokens maps each role to its configured API token.
func (c *Config) APITokens() map[rbac.Role]string {
	return map[rbac.Role]string{
		rbac.RoleAdmin:   c.APITokenAdmin,
		rbac.RoleTeknisi: c.APITokenTeknisi,
		rbac.RoleApt:     c.APITokenApt,
	}
}
