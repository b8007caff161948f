package authgate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// enumerationGuardHash is compared against when the email is unknown so the
// unknown-email path costs a bcrypt comparison just like the wrong-password
// path. It never matches any submitted password.
var enumerationGuardHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// TokenPair bundles a freshly minted credential and refresh token.
type TokenPair struct {
	CredentialToken  string
	CredentialExpiry time.Time
	RefreshToken     string
	RefreshExpiry    time.Time
}

// Authenticator validates credentials against the user store and mints
// token pairs. It never mutates user records.
type Authenticator struct {
	config  ServerConfig
	users   UserStore
	clock   Clock
	logger  *zap.Logger
	metrics *CounterMetrics
}

// NewAuthenticator wires the authenticator's collaborators. Nil clock,
// logger, and metrics fall back to working defaults.
func NewAuthenticator(configuration ServerConfig, users UserStore, clock Clock, logger *zap.Logger, metrics *CounterMetrics) *Authenticator {
	if clock == nil {
		clock = NewSystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewCounterMetrics()
	}
	return &Authenticator{
		config:  configuration,
		users:   users,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// Login checks email and password and returns the account with a new token
// pair. Unknown email and wrong password both yield ErrInvalidCredentials.
func (auth *Authenticator) Login(ctx context.Context, email string, password string) (UserAccount, TokenPair, error) {
	normalizedEmail := strings.ToLower(strings.TrimSpace(email))
	account, findErr := auth.users.FindByEmail(ctx, normalizedEmail)
	if findErr != nil {
		if errors.Is(findErr, ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(enumerationGuardHash, []byte(password))
			auth.metrics.Increment("auth.login.invalid_credentials")
			return UserAccount{}, TokenPair{}, fmt.Errorf("auth.login: %w", ErrInvalidCredentials)
		}
		auth.logger.Error("user lookup failed",
			zap.String("code", "auth.login.store_error"),
			zap.Error(findErr))
		return UserAccount{}, TokenPair{}, fmt.Errorf("auth.login: %w", ErrUpstream)
	}
	if compareErr := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); compareErr != nil {
		auth.metrics.Increment("auth.login.invalid_credentials")
		return UserAccount{}, TokenPair{}, fmt.Errorf("auth.login: %w", ErrInvalidCredentials)
	}
	pair, issueErr := auth.IssueTokens(account)
	if issueErr != nil {
		return UserAccount{}, TokenPair{}, issueErr
	}
	auth.metrics.Increment("auth.login.success")
	return account, pair, nil
}

// IssueTokens mints a credential and refresh token for an already
// authenticated account.
func (auth *Authenticator) IssueTokens(account UserAccount) (TokenPair, error) {
	credentialToken, credentialExpiry, credentialErr := MintCredentialToken(auth.clock, account, auth.config.Issuer, auth.config.CredentialSigningKey, auth.config.CredentialTTL)
	if credentialErr != nil {
		return TokenPair{}, credentialErr
	}
	refreshToken, refreshExpiry, refreshErr := MintRefreshToken(auth.clock, account.ID, auth.config.Issuer, auth.config.RefreshSigningKey, auth.config.RefreshTTL)
	if refreshErr != nil {
		return TokenPair{}, refreshErr
	}
	return TokenPair{
		CredentialToken:  credentialToken,
		CredentialExpiry: credentialExpiry,
		RefreshToken:     refreshToken,
		RefreshExpiry:    refreshExpiry,
	}, nil
}

// Refresh redeems a refresh token for a new credential token. The user is
// re-read from the store, so the minted token carries the user's current
// role; a role change lands here, not mid-lifetime of an issued credential
// token. Users deleted since issuance yield ErrUserNotFound.
func (auth *Authenticator) Refresh(ctx context.Context, refreshTokenValue string) (UserAccount, string, time.Time, error) {
	userID, verifyErr := VerifyRefreshToken(auth.clock, refreshTokenValue, auth.config.Issuer, auth.config.RefreshSigningKey)
	if verifyErr != nil {
		auth.metrics.Increment("auth.refresh.token_invalid")
		return UserAccount{}, "", time.Time{}, fmt.Errorf("auth.refresh: %w", ErrTokenInvalid)
	}
	account, findErr := auth.users.FindByID(ctx, userID)
	if findErr != nil {
		if errors.Is(findErr, ErrUserNotFound) {
			auth.metrics.Increment("auth.refresh.user_not_found")
			return UserAccount{}, "", time.Time{}, fmt.Errorf("auth.refresh: %w", ErrUserNotFound)
		}
		auth.logger.Error("user lookup failed",
			zap.String("code", "auth.refresh.store_error"),
			zap.Error(findErr))
		return UserAccount{}, "", time.Time{}, fmt.Errorf("auth.refresh: %w", ErrUpstream)
	}
	credentialToken, credentialExpiry, mintErr := MintCredentialToken(auth.clock, account, auth.config.Issuer, auth.config.CredentialSigningKey, auth.config.CredentialTTL)
	if mintErr != nil {
		return UserAccount{}, "", time.Time{}, mintErr
	}
	auth.metrics.Increment("auth.refresh.success")
	return account, credentialToken, credentialExpiry, nil
}
