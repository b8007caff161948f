package authgate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/api/idtoken"
)

type authTestHarness struct {
	router  *gin.Engine
	clock   *fixedClock
	users   *fakeUserStore
	metrics *CounterMetrics
	config  ServerConfig
}

func newAuthHarness(t *testing.T, mutate func(*ServerConfig), googleValidator GoogleTokenValidator) *authTestHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := newFixedClock()
	users := newFakeUserStore()
	account := testAccount()
	account.PasswordHash = hashPassword(t, "correct horse")
	users.add(account)

	configuration := testServerConfig()
	if mutate != nil {
		mutate(&configuration)
	}

	metrics := NewCounterMetrics()
	authenticator := NewAuthenticator(configuration, users, clock, nil, metrics)
	verifier := NewSessionVerifier(configuration, clock)

	router := gin.New()
	MountAuthRoutes(router, configuration, authenticator, verifier, users, googleValidator, nil)
	MountMetricsRoute(router, configuration, verifier, metrics)

	return &authTestHarness{router: router, clock: clock, users: users, metrics: metrics, config: configuration}
}

func (harness *authTestHarness) do(t *testing.T, method string, path string, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	request := httptest.NewRequest(method, path, reader)
	if body != "" {
		request.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range cookies {
		request.AddCookie(cookie)
	}
	recorder := httptest.NewRecorder()
	harness.router.ServeHTTP(recorder, request)
	return recorder
}

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestLoginEndpointSetsBothCookies(t *testing.T) {
	harness := newAuthHarness(t, nil, nil)

	recorder := harness.do(t, http.MethodPost, "/api/auth", `{"email":"owner@example.com","password":"correct horse"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	cookies := recorder.Result().Cookies()
	credentialCookie := cookieByName(cookies, "auth-token")
	refreshCookie := cookieByName(cookies, "refresh-token")
	if credentialCookie == nil || refreshCookie == nil {
		t.Fatalf("expected both auth cookies, got %v", cookies)
	}
	for _, cookie := range []*http.Cookie{credentialCookie, refreshCookie} {
		if !cookie.HttpOnly {
			t.Fatalf("cookie %s must be http-only", cookie.Name)
		}
		if cookie.Path != "/" {
			t.Fatalf("cookie %s must be site-wide, got path %q", cookie.Name, cookie.Path)
		}
		if cookie.Secure {
			t.Fatalf("cookie %s must not be secure when insecure HTTP is allowed", cookie.Name)
		}
	}
	if credentialCookie.Value == refreshCookie.Value {
		t.Fatalf("credential and refresh tokens must differ")
	}

	var payload struct {
		Message string `json:"message"`
		User    struct {
			ID    string `json:"id"`
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}
	if decodeErr := json.Unmarshal(recorder.Body.Bytes(), &payload); decodeErr != nil {
		t.Fatalf("failed to decode response: %v", decodeErr)
	}
	if payload.Message != "authenticated" || payload.User.Email != "owner@example.com" || payload.User.Role != RoleAdmin {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestLoginEndpointSecureCookiesByDefault(t *testing.T) {
	harness := newAuthHarness(t, func(configuration *ServerConfig) {
		configuration.AllowInsecureHTTP = false
	}, nil)

	request := httptest.NewRequest(http.MethodPost, "/api/auth", strings.NewReader(`{"email":"owner@example.com","password":"correct horse"}`))
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("X-Forwarded-Proto", "https")
	recorder := httptest.NewRecorder()
	harness.router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	for _, cookie := range recorder.Result().Cookies() {
		if !cookie.Secure {
			t.Fatalf("cookie %s must be secure outside dev mode", cookie.Name)
		}
	}
}

func TestLoginEndpointRejectsPlainHTTPOutsideDev(t *testing.T) {
	harness := newAuthHarness(t, func(configuration *ServerConfig) {
		configuration.AllowInsecureHTTP = false
	}, nil)

	request := httptest.NewRequest(http.MethodPost, "/api/auth", strings.NewReader(`{"email":"owner@example.com","password":"correct horse"}`))
	request.Header.Set("Content-Type", "application/json")
	request.Host = "example.com:8080"
	recorder := httptest.NewRecorder()
	harness.router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for plain HTTP login, got %d", recorder.Code)
	}
}

func TestLoginEndpointValidation(t *testing.T) {
	harness := newAuthHarness(t, nil, nil)

	cases := []string{
		`not json`,
		`{"email":"","password":"x"}`,
		`{"email":"no-at-sign","password":"x"}`,
		`{"email":"owner@example.com","password":""}`,
	}
	for _, body := range cases {
		recorder := harness.do(t, http.MethodPost, "/api/auth", body)
		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %q, got %d", body, recorder.Code)
		}
	}
}

func TestLoginEndpointInvalidCredentials(t *testing.T) {
	harness := newAuthHarness(t, nil, nil)

	unknown := harness.do(t, http.MethodPost, "/api/auth", `{"email":"nobody@example.com","password":"whatever"}`)
	wrong := harness.do(t, http.MethodPost, "/api/auth", `{"email":"owner@example.com","password":"wrong"}`)

	if unknown.Code != http.StatusUnauthorized || wrong.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for both failure modes, got %d and %d", unknown.Code, wrong.Code)
	}
	if unknown.Body.String() != wrong.Body.String() {
		t.Fatalf("login failure bodies must match: %q vs %q", unknown.Body.String(), wrong.Body.String())
	}
	if len(unknown.Result().Cookies()) != 0 {
		t.Fatalf("failed login must not set cookies")
	}
}

func TestLoginEndpointUpstreamFailure(t *testing.T) {
	harness := newAuthHarness(t, nil, nil)
	harness.users.failWith = errors.New("connection refused")

	recorder := harness.do(t, http.MethodPost, "/api/auth", `{"email":"owner@example.com","password":"correct horse"}`)
	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when the store is down, got %d", recorder.Code)
	}
}

func TestLogoutClearsCookies(t *testing.T) {
	harness := newAuthHarness(t, nil, nil)

	recorder := harness.do(t, http.MethodDelete, "/api/auth", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	cookies := recorder.Result().Cookies()
	for _, name := range []string{"auth-token", "refresh-token"} {
		cleared := cookieByName(cookies, name)
		if cleared == nil {
			t.Fatalf("expected %s cookie to be cleared", name)
		}
		if cleared.Value != "" || cleared.MaxAge >= 0 {
			t.Fatalf("cookie %s not expired: value=%q max-age=%d", name, cleared.Value, cleared.MaxAge)
		}
	}
}

func TestRefreshEndpointIssuesNewCredential(t *testing.T) {
	harness := newAuthHarness(t, nil, nil)

	login := harness.do(t, http.MethodPost, "/api/auth", `{"email":"owner@example.com","password":"correct horse"}`)
	refreshCookie := cookieByName(login.Result().Cookies(), "refresh-token")
	if refreshCookie == nil {
		t.Fatalf("login did not set a refresh cookie")
	}

	harness.clock.Advance(30 * time.Minute)

	recorder := harness.do(t, http.MethodPost, "/api/auth/refresh", "", refreshCookie)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	freshCredential := cookieByName(recorder.Result().Cookies(), "auth-token")
	if freshCredential == nil || freshCredential.Value == "" {
		t.Fatalf("refresh must set a fresh credential cookie")
	}
	if cookieByName(recorder.Result().Cookies(), "refresh-token") != nil {
		t.Fatalf("refresh must not rotate the refresh cookie")
	}
}

func TestRefreshEndpointRejections(t *testing.T) {
	harness := newAuthHarness(t, nil, nil)

	if recorder := harness.do(t, http.MethodPost, "/api/auth/refresh", ""); recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without cookie, got %d", recorder.Code)
	}

	garbage := &http.Cookie{Name: "refresh-token", Value: "garbage"}
	if recorder := harness.do(t, http.MethodPost, "/api/auth/refresh", "", garbage); recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", recorder.Code)
	}

	expired, _, _ := MintRefreshToken(harness.clock, "u-test-1", "folio", harness.config.RefreshSigningKey, time.Minute)
	harness.clock.Advance(2 * time.Minute)
	recorder := harness.do(t, http.MethodPost, "/api/auth/refresh", "", &http.Cookie{Name: "refresh-token", Value: expired})
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", recorder.Code)
	}
	if cookieByName(recorder.Result().Cookies(), "auth-token") != nil {
		t.Fatalf("rejected refresh must not set a credential cookie")
	}
}

func TestMeEndpoint(t *testing.T) {
	harness := newAuthHarness(t, nil, nil)

	if recorder := harness.do(t, http.MethodGet, "/api/auth/me", ""); recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", recorder.Code)
	}

	login := harness.do(t, http.MethodPost, "/api/auth", `{"email":"owner@example.com","password":"correct horse"}`)
	credential := cookieByName(login.Result().Cookies(), "auth-token")

	recorder := harness.do(t, http.MethodGet, "/api/auth/me", "", credential)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var payload map[string]any
	if decodeErr := json.Unmarshal(recorder.Body.Bytes(), &payload); decodeErr != nil {
		t.Fatalf("failed to decode response: %v", decodeErr)
	}
	if payload["email"] != "owner@example.com" || payload["role"] != RoleAdmin {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestMetricsEndpointRequiresAdmin(t *testing.T) {
	harness := newAuthHarness(t, nil, nil)
	harness.metrics.Increment("auth.login.success")

	if recorder := harness.do(t, http.MethodGet, "/api/metrics", ""); recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", recorder.Code)
	}

	userCookie := credentialCookie(t, harness.clock, RoleUser)
	if recorder := harness.do(t, http.MethodGet, "/api/metrics", "", userCookie); recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", recorder.Code)
	}

	adminCookie := credentialCookie(t, harness.clock, RoleAdmin)
	recorder := harness.do(t, http.MethodGet, "/api/metrics", "", adminCookie)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "auth.login.success") {
		t.Fatalf("expected counters in payload, got %s", recorder.Body.String())
	}
}

type stubGoogleValidator struct {
	payload *idtoken.Payload
	err     error
}

func (stub stubGoogleValidator) Validate(ctx context.Context, token string, audience string) (*idtoken.Payload, error) {
	return stub.payload, stub.err
}

func googleClaims(overrides map[string]any) map[string]any {
	claims := map[string]any{
		"iss":            "https://accounts.google.com",
		"sub":            "google-sub-1",
		"email":          "visitor@example.com",
		"email_verified": true,
		"name":           "Visitor",
		"picture":        "https://example.com/p.png",
	}
	for key, value := range overrides {
		claims[key] = value
	}
	return claims
}

func TestGoogleLoginCreatesSession(t *testing.T) {
	validator := stubGoogleValidator{payload: &idtoken.Payload{Claims: googleClaims(nil)}}
	harness := newAuthHarness(t, func(configuration *ServerConfig) {
		configuration.GoogleWebClientID = "client-id"
	}, validator)

	recorder := harness.do(t, http.MethodPost, "/api/auth/google", `{"google_id_token":"stub-token"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if cookieByName(recorder.Result().Cookies(), "auth-token") == nil {
		t.Fatalf("expected credential cookie after Google sign-in")
	}
	if _, found := harness.users.lookupByID["google:google-sub-1"]; !found {
		t.Fatalf("expected upserted google user")
	}
}

func TestGoogleLoginRejectsUnverifiedEmail(t *testing.T) {
	validator := stubGoogleValidator{payload: &idtoken.Payload{Claims: googleClaims(map[string]any{"email_verified": false})}}
	harness := newAuthHarness(t, func(configuration *ServerConfig) {
		configuration.GoogleWebClientID = "client-id"
	}, validator)

	recorder := harness.do(t, http.MethodPost, "/api/auth/google", `{"google_id_token":"stub-token"}`)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unverified email, got %d", recorder.Code)
	}
}

func TestGoogleLoginNotMountedWithoutClientID(t *testing.T) {
	harness := newAuthHarness(t, nil, stubGoogleValidator{payload: &idtoken.Payload{Claims: googleClaims(nil)}})

	recorder := harness.do(t, http.MethodPost, "/api/auth/google", `{"google_id_token":"stub-token"}`)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when Google sign-in is disabled, got %d", recorder.Code)
	}
}
