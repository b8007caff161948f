package authgate

import (
	"net/http"
	"time"
)

// Role values stored on user records and embedded in credential tokens.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// ServerConfig carries every knob the gate needs. It is resolved once at
// startup and injected explicitly; nothing in this package reads process
// globals.
type ServerConfig struct {
	CredentialSigningKey []byte
	RefreshSigningKey    []byte
	Issuer               string
	CookieDomain         string
	CredentialCookieName string
	RefreshCookieName    string
	LocaleCookieName     string
	CredentialTTL        time.Duration
	RefreshTTL           time.Duration
	SameSiteMode         http.SameSite
	AllowInsecureHTTP    bool
	GoogleWebClientID    string
}
