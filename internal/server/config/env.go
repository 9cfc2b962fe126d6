package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/vidtube/internal/flagx"
	"github.com/dmitrijs2005/vidtube/internal/timex"
	"github.com/joho/godotenv"
)

// parseEnv overlays Config with environment variables. A dotenv file named by
// -env-file is loaded first and must exist; otherwise ./.env is loaded when
// present. Variables already set in the process environment win over the file.
//
// Recognised variables:
//
//	HTTP_ADDR, DATABASE_URL,
//	ACCESS_TOKEN_SECRET, ACCESS_TOKEN_EXPIRY, REFRESH_TOKEN_SECRET, REFRESH_TOKEN_EXPIRY,
//	PASSWORD_HASH_COST,
//	S3_ACCESS_KEY, S3_SECRET_KEY, S3_BUCKET, S3_REGION, S3_ENDPOINT, S3_PUBLIC_URL,
//	UPLOAD_TEMP_DIR, CORS_ORIGIN (comma separated), COOKIE_SECURE, COOKIE_SAMESITE,
//	AUTH_RATE_LIMIT, AUTH_RATE_BURST, LOG_LEVEL
//
// Expiry values accept Go durations plus a day suffix ("10d"). Malformed
// values panic, like a malformed JSON file does.
func parseEnv(config *Config) {
	if envFile := flagx.EnvFileFlags(); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			panic(err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			panic(err)
		}
	}

	setString(&config.EndpointAddrHTTP, "HTTP_ADDR")
	setString(&config.DatabaseDSN, "DATABASE_URL")
	setString(&config.AccessTokenSecret, "ACCESS_TOKEN_SECRET")
	setString(&config.RefreshTokenSecret, "REFRESH_TOKEN_SECRET")

	if v, ok := lookup("ACCESS_TOKEN_EXPIRY"); ok {
		config.AccessTokenValidityDuration = mustDuration("ACCESS_TOKEN_EXPIRY", v)
	}
	if v, ok := lookup("REFRESH_TOKEN_EXPIRY"); ok {
		config.RefreshTokenValidityDuration = mustDuration("REFRESH_TOKEN_EXPIRY", v)
	}
	if v, ok := lookup("PASSWORD_HASH_COST"); ok {
		config.PasswordHashCost = mustInt("PASSWORD_HASH_COST", v)
	}

	setString(&config.S3RootUser, "S3_ACCESS_KEY")
	setString(&config.S3RootPassword, "S3_SECRET_KEY")
	setString(&config.S3Bucket, "S3_BUCKET")
	setString(&config.S3Region, "S3_REGION")
	setString(&config.S3BaseEndpoint, "S3_ENDPOINT")
	setString(&config.S3PublicURL, "S3_PUBLIC_URL")
	setString(&config.UploadTempDir, "UPLOAD_TEMP_DIR")

	if v, ok := lookup("CORS_ORIGIN"); ok {
		config.CORSOrigins = splitOrigins(v)
	}
	if v, ok := lookup("COOKIE_SECURE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(fmt.Errorf("COOKIE_SECURE: %w", err))
		}
		config.CookieSecure = b
	}
	setString(&config.CookieSameSite, "COOKIE_SAMESITE")

	if v, ok := lookup("AUTH_RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			panic(fmt.Errorf("AUTH_RATE_LIMIT: %w", err))
		}
		config.AuthRateLimit = f
	}
	if v, ok := lookup("AUTH_RATE_BURST"); ok {
		config.AuthRateBurst = mustInt("AUTH_RATE_BURST", v)
	}
	setString(&config.LogLevel, "LOG_LEVEL")
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func mustDuration(key, v string) time.Duration {
	d, err := timex.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", key, err))
	}
	return d
}

func mustInt(key, v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", key, err))
	}
	return n
}

// splitOrigins parses a comma separated origin list, dropping blanks and
// trailing slashes.
func splitOrigins(v string) []string {
	var origins []string
	for _, p := range strings.Split(v, ",") {
		if o := strings.TrimRight(strings.TrimSpace(p), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
