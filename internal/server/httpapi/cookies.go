package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/server/config"
	"github.com/dmitrijs2005/vidtube/internal/server/services"
)

type cookieSettings struct {
	secure     bool
	sameSite   http.SameSite
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func newCookieSettings(cfg *config.Config) cookieSettings {
	return cookieSettings{
		secure:     cfg.CookieSecure,
		sameSite:   parseSameSite(cfg.CookieSameSite),
		accessTTL:  cfg.AccessTokenValidityDuration,
		refreshTTL: cfg.RefreshTokenValidityDuration,
	}
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func (c cookieSettings) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: c.sameSite,
	}
}

func (c cookieSettings) setTokens(w http.ResponseWriter, pair services.TokenPair) {
	http.SetCookie(w, c.cookie(common.AccessTokenCookieName, pair.AccessToken, int(c.accessTTL.Seconds())))
	http.SetCookie(w, c.cookie(common.RefreshTokenCookieName, pair.RefreshToken, int(c.refreshTTL.Seconds())))
}

func (c cookieSettings) clearTokens(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(common.AccessTokenCookieName, "", -1))
	http.SetCookie(w, c.cookie(common.RefreshTokenCookieName, "", -1))
}

// accessToken reads the access token from the cookie, then from the
// Authorization header.
func accessToken(r *http.Request) string {
	if c, err := r.Cookie(common.AccessTokenCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get(common.AuthorizationHeaderName)
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
