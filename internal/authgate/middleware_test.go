package authgate

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func gateTestConfig() GateConfig {
	return GateConfig{
		AdminPrefixes:     []string{"/admin"},
		ProtectedPrefixes: []string{"/dashboard"},
		LoginPath:         "/login",
		DefaultLocale:     "en",
	}
}

func newGatedRouter(t *testing.T, clock Clock) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	configuration := testServerConfig()
	verifier := NewSessionVerifier(configuration, clock)
	router := gin.New()
	router.Use(RouteGate(configuration, gateTestConfig(), verifier))
	for _, path := range []string{"/", "/about", "/dashboard", "/dashboard/settings", "/admin", "/admin/posts", "/login"} {
		router.GET(path, func(contextGin *gin.Context) {
			contextGin.String(http.StatusOK, "ok")
		})
	}
	router.GET("/api/profile", func(contextGin *gin.Context) {
		contextGin.String(http.StatusOK, "api")
	})
	return router
}

func credentialCookie(t *testing.T, clock Clock, role string) *http.Cookie {
	t.Helper()
	account := testAccount()
	account.Role = role
	signed, _, mintErr := MintCredentialToken(clock, account, "folio", []byte("credential-secret"), time.Hour)
	if mintErr != nil {
		t.Fatalf("mint failed: %v", mintErr)
	}
	return &http.Cookie{Name: "auth-token", Value: signed}
}

func performGet(router *gin.Engine, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, path, nil)
	for _, cookie := range cookies {
		request.AddCookie(cookie)
	}
	router.ServeHTTP(recorder, request)
	return recorder
}

func TestRouteGatePublicPathsPassThrough(t *testing.T) {
	clock := newFixedClock()
	router := newGatedRouter(t, clock)

	for _, path := range []string{"/", "/about", "/login"} {
		recorder := performGet(router, path)
		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200 for public path %s, got %d", path, recorder.Code)
		}
	}
}

func TestRouteGateRedirectsWithoutSession(t *testing.T) {
	clock := newFixedClock()
	router := newGatedRouter(t, clock)

	recorder := performGet(router, "/dashboard")
	if recorder.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", recorder.Code)
	}
	if location := recorder.Header().Get("Location"); location != "/login?redirect=%2Fdashboard" {
		t.Fatalf("unexpected redirect target %q", location)
	}
}

func TestRouteGateRedirectsIdenticallyForInvalidToken(t *testing.T) {
	clock := newFixedClock()
	router := newGatedRouter(t, clock)

	missing := performGet(router, "/dashboard/settings")
	tampered := performGet(router, "/dashboard/settings", &http.Cookie{Name: "auth-token", Value: "tampered.token.value"})

	if missing.Code != tampered.Code {
		t.Fatalf("status differs: missing %d vs tampered %d", missing.Code, tampered.Code)
	}
	if missing.Header().Get("Location") != tampered.Header().Get("Location") {
		t.Fatalf("redirect target differs between missing and invalid tokens")
	}
}

func TestRouteGateExpiredTokenRedirects(t *testing.T) {
	clock := newFixedClock()
	cookie := credentialCookie(t, clock, RoleUser)
	clock.Advance(2 * time.Hour)
	router := newGatedRouter(t, clock)

	recorder := performGet(router, "/dashboard", cookie)
	if recorder.Code != http.StatusFound {
		t.Fatalf("expected 302 for expired token, got %d", recorder.Code)
	}
}

func TestRouteGateAllowsAuthenticatedUser(t *testing.T) {
	clock := newFixedClock()
	router := newGatedRouter(t, clock)

	recorder := performGet(router, "/dashboard", credentialCookie(t, clock, RoleUser))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
}

func TestRouteGateSendsNonAdminsHome(t *testing.T) {
	clock := newFixedClock()
	router := newGatedRouter(t, clock)

	recorder := performGet(router, "/admin/posts", credentialCookie(t, clock, RoleUser))
	if recorder.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", recorder.Code)
	}
	if location := recorder.Header().Get("Location"); location != "/" {
		t.Fatalf("expected redirect home, got %q", location)
	}
}

func TestRouteGateAllowsAdmins(t *testing.T) {
	clock := newFixedClock()
	router := newGatedRouter(t, clock)

	recorder := performGet(router, "/admin/posts", credentialCookie(t, clock, RoleAdmin))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
}

func TestRouteGateSkipsAPIAndAssets(t *testing.T) {
	clock := newFixedClock()
	router := newGatedRouter(t, clock)

	recorder := performGet(router, "/api/profile")
	if recorder.Code != http.StatusOK {
		t.Fatalf("API paths must bypass the gate, got %d", recorder.Code)
	}
	if recorder.Header().Get("X-Locale") != "" {
		t.Fatalf("API responses should not carry the locale header")
	}
}

func TestRouteGateSetsLocaleHeader(t *testing.T) {
	clock := newFixedClock()
	router := newGatedRouter(t, clock)

	recorder := performGet(router, "/about")
	if locale := recorder.Header().Get("X-Locale"); locale != "en" {
		t.Fatalf("expected fallback locale en, got %q", locale)
	}

	recorder = performGet(router, "/about", &http.Cookie{Name: "locale", Value: "ru"})
	if locale := recorder.Header().Get("X-Locale"); locale != "ru" {
		t.Fatalf("expected cookie locale ru, got %q", locale)
	}
}

func TestMatchesPrefixRespectsSegmentBoundaries(t *testing.T) {
	if matchesPrefix("/administrator", "/admin") {
		t.Fatalf("/administrator must not match the /admin prefix")
	}
	if !matchesPrefix("/admin", "/admin") {
		t.Fatalf("exact prefix match expected")
	}
	if !matchesPrefix("/admin/posts", "/admin") {
		t.Fatalf("segment-boundary match expected")
	}
}

func TestSkipGateDotPaths(t *testing.T) {
	for path, want := range map[string]bool{
		"/favicon.ico":     true,
		"/static/app.js":   true,
		"/api/auth":        true,
		"/dashboard":       false,
		"/admin":           false,
		"/robots.txt":      true,
		"/dashboard/sub":   false,
		"/apiary":          false,
		"/staticextra/doc": false,
	} {
		if got := skipGate(path); got != want {
			t.Fatalf("skipGate(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestRequireSessionAndAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	clock := newFixedClock()
	configuration := testServerConfig()
	verifier := NewSessionVerifier(configuration, clock)

	router := gin.New()
	router.GET("/api/secret", RequireSession(configuration, verifier), RequireAdmin(), func(contextGin *gin.Context) {
		contextGin.String(http.StatusOK, "secret")
	})

	if recorder := performGet(router, "/api/secret"); recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without cookie, got %d", recorder.Code)
	}
	if recorder := performGet(router, "/api/secret", credentialCookie(t, clock, RoleUser)); recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", recorder.Code)
	}
	if recorder := performGet(router, "/api/secret", credentialCookie(t, clock, RoleAdmin)); recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", recorder.Code)
	}
}

func TestVerifySessionNeverExplains(t *testing.T) {
	clock := newFixedClock()
	verifier := NewSessionVerifier(testServerConfig(), clock)

	for _, cookieValue := range []string{"", "  ", "garbage", "a.b.c"} {
		if session := verifier.VerifySession(cookieValue); session != nil {
			t.Fatalf("expected nil session for %q", cookieValue)
		}
	}

	cookie := credentialCookie(t, clock, RoleUser)
	session := verifier.VerifySession(cookie.Value)
	if session == nil {
		t.Fatalf("expected session for valid token")
	}
	if session.UserID != "u-test-1" || session.Role != RoleUser {
		t.Fatalf("unexpected session contents: %+v", session)
	}
	if session.IsAdmin() {
		t.Fatalf("user session must not report admin")
	}
}
