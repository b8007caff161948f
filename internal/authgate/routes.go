package authgate

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userView struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

func viewOf(account UserAccount) userView {
	return userView{
		ID:        account.ID,
		Email:     account.Email,
		Role:      account.Role,
		Name:      account.Name,
		AvatarURL: account.AvatarURL,
	}
}

// MountAuthRoutes registers the auth endpoints: POST/DELETE /api/auth,
// POST /api/auth/refresh, GET /api/auth/me, and (when a Google client id is
// configured) POST /api/auth/google. loginLimiter, when non-nil, throttles
// the password login endpoint.
func MountAuthRoutes(router gin.IRouter, configuration ServerConfig, authenticator *Authenticator, verifier *SessionVerifier, users UserStore, googleValidator GoogleTokenValidator, loginLimiter gin.HandlerFunc) {
	loginHandlers := []gin.HandlerFunc{}
	if loginLimiter != nil {
		loginHandlers = append(loginHandlers, loginLimiter)
	}
	loginHandlers = append(loginHandlers, func(contextGin *gin.Context) {
		var inbound loginRequest
		if bindErr := contextGin.BindJSON(&inbound); bindErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
			return
		}
		if validationMessage := validateLoginRequest(inbound); validationMessage != "" {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validationMessage})
			return
		}
		if !configuration.AllowInsecureHTTP && !isHTTPS(contextGin.Request) {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "https_required"})
			return
		}
		account, pair, loginErr := authenticator.Login(contextGin.Request.Context(), inbound.Email, inbound.Password)
		if loginErr != nil {
			if errors.Is(loginErr, ErrInvalidCredentials) {
				contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
				return
			}
			contextGin.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "authentication unavailable"})
			return
		}
		writeCredentialCookie(contextGin, configuration, pair.CredentialToken, pair.CredentialExpiry)
		writeRefreshCookie(contextGin, configuration, pair.RefreshToken, pair.RefreshExpiry)
		contextGin.JSON(http.StatusOK, gin.H{
			"message": "authenticated",
			"user":    viewOf(account),
		})
	})
	router.POST("/api/auth", loginHandlers...)

	router.DELETE("/api/auth", func(contextGin *gin.Context) {
		clearCookie(contextGin, configuration, configuration.CredentialCookieName)
		clearCookie(contextGin, configuration, configuration.RefreshCookieName)
		contextGin.JSON(http.StatusOK, gin.H{"message": "logged out"})
	})

	router.POST("/api/auth/refresh", func(contextGin *gin.Context) {
		refreshCookie, cookieErr := contextGin.Request.Cookie(configuration.RefreshCookieName)
		if cookieErr != nil || refreshCookie == nil || strings.TrimSpace(refreshCookie.Value) == "" {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		account, credentialToken, credentialExpiry, refreshErr := authenticator.Refresh(contextGin.Request.Context(), refreshCookie.Value)
		if refreshErr != nil {
			if errors.Is(refreshErr, ErrUpstream) {
				contextGin.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "authentication unavailable"})
				return
			}
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		writeCredentialCookie(contextGin, configuration, credentialToken, credentialExpiry)
		contextGin.JSON(http.StatusOK, gin.H{
			"message": "refreshed",
			"user":    viewOf(account),
		})
	})

	if configuration.GoogleWebClientID != "" && googleValidator != nil {
		mountGoogleLogin(router, configuration, authenticator, users, googleValidator)
	}

	router.GET("/api/auth/me", func(contextGin *gin.Context) {
		var cookieValue string
		if cookie, cookieErr := contextGin.Request.Cookie(configuration.CredentialCookieName); cookieErr == nil && cookie != nil {
			cookieValue = cookie.Value
		}
		session := verifier.VerifySession(cookieValue)
		if session == nil {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		contextGin.JSON(http.StatusOK, gin.H{
			"user_id":    session.UserID,
			"email":      session.Email,
			"role":       session.Role,
			"name":       session.Name,
			"avatar_url": session.AvatarURL,
			"expires":    session.ExpiresAt,
		})
	})
}

// MountMetricsRoute exposes the auth counters to admins.
func MountMetricsRoute(router gin.IRouter, configuration ServerConfig, verifier *SessionVerifier, metrics *CounterMetrics) {
	router.GET("/api/metrics", RequireSession(configuration, verifier), RequireAdmin(), func(contextGin *gin.Context) {
		contextGin.JSON(http.StatusOK, gin.H{"counters": metrics.Snapshot()})
	})
}

func mountGoogleLogin(router gin.IRouter, configuration ServerConfig, authenticator *Authenticator, users UserStore, googleValidator GoogleTokenValidator) {
	router.POST("/api/auth/google", func(contextGin *gin.Context) {
		var inbound struct {
			GoogleIDToken string `json:"google_id_token"`
		}
		if bindErr := contextGin.BindJSON(&inbound); bindErr != nil || strings.TrimSpace(inbound.GoogleIDToken) == "" {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
			return
		}
		if !configuration.AllowInsecureHTTP && !isHTTPS(contextGin.Request) {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "https_required"})
			return
		}
		payload, validateErr := googleValidator.Validate(contextGin.Request.Context(), inbound.GoogleIDToken, configuration.GoogleWebClientID)
		if validateErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_google_token"})
			return
		}
		issuerValue, okIssuer := payload.Claims["iss"].(string)
		if !okIssuer || (issuerValue != "https://accounts.google.com" && issuerValue != "accounts.google.com") {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_issuer"})
			return
		}
		googleSub, _ := payload.Claims["sub"].(string)
		userEmail, _ := payload.Claims["email"].(string)
		emailVerified, _ := payload.Claims["email_verified"].(bool)
		userDisplayName, _ := payload.Claims["name"].(string)
		avatarURL, _ := payload.Claims["picture"].(string)
		if googleSub == "" || userEmail == "" || !emailVerified {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unverified_identity"})
			return
		}
		upsertCtx, cancel := context.WithTimeout(contextGin.Request.Context(), 5*time.Second)
		defer cancel()
		account, upsertErr := users.UpsertGoogleUser(upsertCtx, googleSub, userEmail, userDisplayName, avatarURL)
		if upsertErr != nil || account.ID == "" {
			contextGin.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "authentication unavailable"})
			return
		}
		pair, issueErr := authenticator.IssueTokens(account)
		if issueErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "authentication unavailable"})
			return
		}
		writeCredentialCookie(contextGin, configuration, pair.CredentialToken, pair.CredentialExpiry)
		writeRefreshCookie(contextGin, configuration, pair.RefreshToken, pair.RefreshExpiry)
		contextGin.JSON(http.StatusOK, gin.H{
			"message": "authenticated",
			"user":    viewOf(account),
		})
	})
}

func validateLoginRequest(inbound loginRequest) string {
	email := strings.TrimSpace(inbound.Email)
	if email == "" || !strings.Contains(email, "@") {
		return "a valid email is required"
	}
	if inbound.Password == "" {
		return "a password is required"
	}
	return ""
}

func writeCredentialCookie(contextGin *gin.Context, configuration ServerConfig, token string, expiresAt time.Time) {
	http.SetCookie(contextGin.Writer, &http.Cookie{
		Name:     configuration.CredentialCookieName,
		Value:    token,
		Path:     "/",
		Domain:   configuration.CookieDomain,
		Expires:  expiresAt,
		Secure:   !configuration.AllowInsecureHTTP,
		HttpOnly: true,
		SameSite: configuration.SameSiteMode,
	})
}

func writeRefreshCookie(contextGin *gin.Context, configuration ServerConfig, token string, expiresAt time.Time) {
	http.SetCookie(contextGin.Writer, &http.Cookie{
		Name:     configuration.RefreshCookieName,
		Value:    token,
		Path:     "/",
		Domain:   configuration.CookieDomain,
		Expires:  expiresAt,
		Secure:   !configuration.AllowInsecureHTTP,
		HttpOnly: true,
		SameSite: configuration.SameSiteMode,
	})
}

func clearCookie(contextGin *gin.Context, configuration ServerConfig, name string) {
	http.SetCookie(contextGin.Writer, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   configuration.CookieDomain,
		MaxAge:   -1,
		Secure:   !configuration.AllowInsecureHTTP,
		HttpOnly: true,
		SameSite: configuration.SameSiteMode,
	})
}

func isHTTPS(request *http.Request) bool {
	if request.TLS != nil {
		return true
	}
	scheme := request.Header.Get("X-Forwarded-Proto")
	if strings.EqualFold(scheme, "https") {
		return true
	}
	forwarded := request.Header.Get("Forwarded")
	if forwarded != "" && strings.Contains(strings.ToLower(forwarded), "proto=https") {
		return true
	}
	host, _, splitErr := net.SplitHostPort(request.Host)
	if splitErr == nil && host == "localhost" {
		return true
	}
	return false
}
