package authgate

import (
	"strings"
	"time"
)

// Session is the ephemeral identity view derived from a verified credential
// token. It is reconstructed per request and never stored.
type Session struct {
	UserID    string
	Email     string
	Role      string
	Name      string
	AvatarURL string
	ExpiresAt time.Time
}

// IsAdmin reports whether the session belongs to an admin.
func (session *Session) IsAdmin() bool {
	return session != nil && session.Role == RoleAdmin
}

// SessionVerifier reconstructs sessions from credential cookie values.
// Verification is a pure function: no I/O, no store round-trip.
type SessionVerifier struct {
	config ServerConfig
	clock  Clock
}

// NewSessionVerifier builds a verifier for the configured credential key.
func NewSessionVerifier(configuration ServerConfig, clock Clock) *SessionVerifier {
	if clock == nil {
		clock = NewSystemClock()
	}
	return &SessionVerifier{config: configuration, clock: clock}
}

// VerifySession returns the session encoded in the cookie value, or nil.
// Missing, malformed, tampered, and expired tokens are deliberately
// indistinguishable to the caller.
func (verifier *SessionVerifier) VerifySession(cookieValue string) *Session {
	if strings.TrimSpace(cookieValue) == "" {
		return nil
	}
	claims, verifyErr := VerifyCredentialToken(verifier.clock, cookieValue, verifier.config.Issuer, verifier.config.CredentialSigningKey)
	if verifyErr != nil {
		return nil
	}
	session := &Session{
		UserID:    claims.Subject,
		Email:     claims.UserEmail,
		Role:      claims.UserRole,
		Name:      claims.UserName,
		AvatarURL: claims.UserAvatarURL,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session
}
