// Package common contains shared constants and sentinel errors used across
// vidtube components.
package common

// Cookie names carrying the session tokens.
const (
	AccessTokenCookieName  = "accessToken"
	RefreshTokenCookieName = "refreshToken"
)

// AuthorizationHeaderName carries "Bearer <access token>" when cookies are not used.
const AuthorizationHeaderName = "Authorization"
