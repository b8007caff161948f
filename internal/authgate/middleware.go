package authgate

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// SessionContextKey is where the middlewares store the verified *Session.
const SessionContextKey = "auth_session"

// GateConfig maps request paths to the protection level they require.
type GateConfig struct {
	AdminPrefixes     []string
	ProtectedPrefixes []string
	LoginPath         string
	DefaultLocale     string
}

type routeClass int

const (
	routePublic routeClass = iota
	routeNeedsAuth
	routeNeedsAdmin
)

func (gate GateConfig) classify(path string) routeClass {
	for _, prefix := range gate.AdminPrefixes {
		if matchesPrefix(path, prefix) {
			return routeNeedsAdmin
		}
	}
	for _, prefix := range gate.ProtectedPrefixes {
		if matchesPrefix(path, prefix) {
			return routeNeedsAuth
		}
	}
	return routePublic
}

func matchesPrefix(path string, prefix string) bool {
	if prefix == "" || !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

// skipGate mirrors the asset/API matcher: API routes carry their own
// session checks and static assets need none.
func skipGate(path string) bool {
	return matchesPrefix(path, "/api") || matchesPrefix(path, "/static") || strings.Contains(path, ".")
}

// RouteGate protects page routes. Unauthenticated requests to protected
// paths are redirected to the login page, identically for missing and
// invalid tokens; authenticated non-admins on admin paths go home instead.
// The gate trusts the role embedded in the credential token rather than
// re-reading the store on every request, so a role downgrade keeps its old
// access until the next refresh.
func RouteGate(configuration ServerConfig, gate GateConfig, verifier *SessionVerifier) gin.HandlerFunc {
	loginPath := gate.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}
	return func(contextGin *gin.Context) {
		path := contextGin.Request.URL.Path
		if skipGate(path) {
			contextGin.Next()
			return
		}
		contextGin.Header("X-Locale", resolveLocale(contextGin.Request, configuration.LocaleCookieName, gate.DefaultLocale))
		class := gate.classify(path)
		if class == routePublic {
			contextGin.Next()
			return
		}
		var cookieValue string
		if cookie, cookieErr := contextGin.Request.Cookie(configuration.CredentialCookieName); cookieErr == nil && cookie != nil {
			cookieValue = cookie.Value
		}
		session := verifier.VerifySession(cookieValue)
		if session == nil {
			contextGin.Redirect(http.StatusFound, loginPath+"?redirect="+url.QueryEscape(path))
			contextGin.Abort()
			return
		}
		if class == routeNeedsAdmin && !session.IsAdmin() {
			contextGin.Redirect(http.StatusFound, "/")
			contextGin.Abort()
			return
		}
		contextGin.Set(SessionContextKey, session)
		contextGin.Next()
	}
}

// RequireSession is the JSON-API variant of the gate: 401 instead of a
// redirect, same silence about why verification failed.
func RequireSession(configuration ServerConfig, verifier *SessionVerifier) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		var cookieValue string
		if cookie, cookieErr := contextGin.Request.Cookie(configuration.CredentialCookieName); cookieErr == nil && cookie != nil {
			cookieValue = cookie.Value
		}
		session := verifier.VerifySession(cookieValue)
		if session == nil {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		contextGin.Set(SessionContextKey, session)
		contextGin.Next()
	}
}

// RequireAdmin enforces the admin role on API routes. 403 keeps the
// authenticated-but-unprivileged case distinct from 401.
func RequireAdmin() gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		session := SessionFromContext(contextGin)
		if session == nil {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if !session.IsAdmin() {
			contextGin.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		contextGin.Next()
	}
}

// SessionFromContext returns the session stored by RouteGate or
// RequireSession, or nil.
func SessionFromContext(contextGin *gin.Context) *Session {
	value, found := contextGin.Get(SessionContextKey)
	if !found {
		return nil
	}
	session, ok := value.(*Session)
	if !ok {
		return nil
	}
	return session
}

func resolveLocale(request *http.Request, cookieName string, fallback string) string {
	if cookieName == "" {
		cookieName = "locale"
	}
	if fallback == "" {
		fallback = "en"
	}
	cookie, cookieErr := request.Cookie(cookieName)
	if cookieErr != nil || cookie == nil || strings.TrimSpace(cookie.Value) == "" {
		return fallback
	}
	return cookie.Value
}
