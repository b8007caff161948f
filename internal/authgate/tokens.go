package authgate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	errEmptySigningKey = errors.New("jwt.mint.empty_signing_key")
	errEmptySubject    = errors.New("jwt.mint.empty_subject")
)

// CredentialClaims are embedded in the credential token carried by the
// auth-token cookie. The role claim is what the Route Gate trusts.
type CredentialClaims struct {
	UserEmail     string `json:"user_email"`
	UserRole      string `json:"user_role"`
	UserName      string `json:"user_name,omitempty"`
	UserAvatarURL string `json:"user_avatar_url,omitempty"`
	jwt.RegisteredClaims
}

// RefreshClaims carry only the subject. A refresh token proves identity;
// the current role is re-read from the store when it is redeemed.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// MintCredentialToken signs an HS256 credential token for the account.
func MintCredentialToken(clock Clock, account UserAccount, issuer string, signingKey []byte, ttl time.Duration) (string, time.Time, error) {
	if len(signingKey) == 0 {
		return "", time.Time{}, fmt.Errorf("jwt.mint_credential: %w", errEmptySigningKey)
	}
	if strings.TrimSpace(account.ID) == "" {
		return "", time.Time{}, fmt.Errorf("jwt.mint_credential: %w", errEmptySubject)
	}
	issuedAt := clock.Now().UTC()
	expiresAt := issuedAt.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, CredentialClaims{
		UserEmail:     account.Email,
		UserRole:      account.Role,
		UserName:      account.Name,
		UserAvatarURL: account.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt.Add(-30 * time.Second)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, signErr := token.SignedString(signingKey)
	if signErr != nil {
		return "", time.Time{}, fmt.Errorf("jwt.mint_credential: %w", signErr)
	}
	return signed, expiresAt, nil
}

// MintRefreshToken signs an HS256 refresh token for the user id. It is
// signed with its own key so a leaked credential key cannot forge refreshes.
func MintRefreshToken(clock Clock, userID string, issuer string, signingKey []byte, ttl time.Duration) (string, time.Time, error) {
	if len(signingKey) == 0 {
		return "", time.Time{}, fmt.Errorf("jwt.mint_refresh: %w", errEmptySigningKey)
	}
	if strings.TrimSpace(userID) == "" {
		return "", time.Time{}, fmt.Errorf("jwt.mint_refresh: %w", errEmptySubject)
	}
	issuedAt := clock.Now().UTC()
	expiresAt := issuedAt.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt.Add(-30 * time.Second)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, signErr := token.SignedString(signingKey)
	if signErr != nil {
		return "", time.Time{}, fmt.Errorf("jwt.mint_refresh: %w", signErr)
	}
	return signed, expiresAt, nil
}

// VerifyCredentialToken validates signature, expiry, and issuer, and
// returns the embedded claims. Every failure collapses to ErrTokenInvalid.
func VerifyCredentialToken(clock Clock, tokenString string, issuer string, signingKey []byte) (*CredentialClaims, error) {
	claims := &CredentialClaims{}
	if err := parseSigned(clock, tokenString, signingKey, claims); err != nil {
		return nil, err
	}
	if claims.Issuer != issuer || strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("jwt.verify_credential: %w", ErrTokenInvalid)
	}
	return claims, nil
}

// VerifyRefreshToken validates a refresh token and returns its subject.
func VerifyRefreshToken(clock Clock, tokenString string, issuer string, signingKey []byte) (string, error) {
	claims := &RefreshClaims{}
	if err := parseSigned(clock, tokenString, signingKey, claims); err != nil {
		return "", err
	}
	if claims.Issuer != issuer || strings.TrimSpace(claims.Subject) == "" {
		return "", fmt.Errorf("jwt.verify_refresh: %w", ErrTokenInvalid)
	}
	return claims.Subject, nil
}

func parseSigned(clock Clock, tokenString string, signingKey []byte, claims jwt.Claims) error {
	if strings.TrimSpace(tokenString) == "" {
		return fmt.Errorf("jwt.verify: %w", ErrTokenInvalid)
	}
	parsedToken, parseErr := jwt.ParseWithClaims(tokenString, claims, func(parsed *jwt.Token) (interface{}, error) {
		return signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(func() time.Time {
		return clock.Now()
	}))
	if parseErr != nil || parsedToken == nil || !parsedToken.Valid {
		return fmt.Errorf("jwt.verify: %w", ErrTokenInvalid)
	}
	return nil
}
