package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/vidtube/internal/flagx"
	"github.com/dmitrijs2005/vidtube/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON configuration file.
// Durations use timex.Duration so both "15m"/"10d" strings and integer
// nanoseconds are accepted. Only keys present with non-zero values override
// the values loaded before.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDSN                  string         `json:"database_dsn"`
	AccessTokenSecret            string         `json:"access_token_secret"`
	RefreshTokenSecret           string         `json:"refresh_token_secret"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	PasswordHashCost             int            `json:"password_hash_cost"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	S3PublicURL                  string         `json:"s3_public_url"`
	UploadTempDir                string         `json:"upload_temp_dir"`
	JSONBodyLimit                int64          `json:"json_body_limit"`
	UploadBodyLimit              int64          `json:"upload_body_limit"`
	CORSOrigins                  []string       `json:"cors_origins"`
	CookieSecure                 *bool          `json:"cookie_secure"`
	CookieSameSite               string         `json:"cookie_samesite"`
	AuthRateLimit                float64        `json:"auth_rate_limit"`
	AuthRateBurst                int            `json:"auth_rate_burst"`
	LogLevel                     string         `json:"log_level"`
}

// parseJson loads the file named by -c/-config (if any) into config.
// An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	overrideString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	overrideString(&config.DatabaseDSN, c.DatabaseDSN)
	overrideString(&config.AccessTokenSecret, c.AccessTokenSecret)
	overrideString(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration != 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.PasswordHashCost != 0 {
		config.PasswordHashCost = c.PasswordHashCost
	}
	overrideString(&config.S3RootUser, c.S3RootUser)
	overrideString(&config.S3RootPassword, c.S3RootPassword)
	overrideString(&config.S3Bucket, c.S3Bucket)
	overrideString(&config.S3Region, c.S3Region)
	overrideString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	overrideString(&config.S3PublicURL, c.S3PublicURL)
	overrideString(&config.UploadTempDir, c.UploadTempDir)
	if c.JSONBodyLimit != 0 {
		config.JSONBodyLimit = c.JSONBodyLimit
	}
	if c.UploadBodyLimit != 0 {
		config.UploadBodyLimit = c.UploadBodyLimit
	}
	if len(c.CORSOrigins) > 0 {
		config.CORSOrigins = c.CORSOrigins
	}
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}
	overrideString(&config.CookieSameSite, c.CookieSameSite)
	if c.AuthRateLimit != 0 {
		config.AuthRateLimit = c.AuthRateLimit
	}
	if c.AuthRateBurst != 0 {
		config.AuthRateBurst = c.AuthRateBurst
	}
	overrideString(&config.LogLevel, c.LogLevel)
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
