package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tyemirov/folio/internal/authgate"
	"github.com/tyemirov/folio/internal/inboxpg"
	"github.com/tyemirov/folio/internal/ratelimit"
	"github.com/tyemirov/folio/internal/store"
	"github.com/tyemirov/folio/internal/web"
	webassets "github.com/tyemirov/folio/web"
)

var serveHTTP = func(server *http.Server) error {
	return server.ListenAndServe()
}

var buildGoogleTokenValidator = func(ctx context.Context) (authgate.GoogleTokenValidator, error) {
	return authgate.NewGoogleTokenValidator(ctx)
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "folio",
		Short:   "Portfolio site backend with cookie sessions and route-level access control",
		PreRunE: prepareServerConfig,
		RunE:    runServer,
	}

	rootCmd.Flags().String("listen_addr", ":8080", "HTTP listen address")
	rootCmd.Flags().String("database_url", "sqlite://folio.db", "Content database URL (postgres:// or sqlite://)")
	rootCmd.Flags().String("inbox_database_url", "", "Optional PostgreSQL URL for contact messages; empty keeps them in the content database")
	rootCmd.Flags().String("redis_addr", "", "Optional Redis address for login rate limiting; empty disables the throttle")
	rootCmd.Flags().String("credential_signing_key", "", "HS256 signing secret for credential tokens")
	rootCmd.Flags().String("refresh_signing_key", "", "HS256 signing secret for refresh tokens; must differ from the credential key")
	rootCmd.Flags().Duration("credential_ttl", 720*time.Hour, "Credential token TTL")
	rootCmd.Flags().Duration("refresh_ttl", 8760*time.Hour, "Refresh token TTL")
	rootCmd.Flags().String("cookie_domain", "", "Cookie domain; empty for host-only")
	rootCmd.Flags().String("default_locale", "en", "Fallback locale for content reads")
	rootCmd.Flags().StringSlice("admin_routes", []string{"/admin"}, "Path prefixes that require the ADMIN role")
	rootCmd.Flags().StringSlice("protected_routes", []string{"/dashboard"}, "Path prefixes that require a signed-in user")
	rootCmd.Flags().String("login_path", "/login", "Path browsers are redirected to when a protected page is hit without a session")
	rootCmd.Flags().Bool("dev_insecure_http", false, "Allow insecure HTTP for local dev")
	rootCmd.Flags().Bool("enable_cors", false, "Enable CORS for cross-origin clients (required to set SameSite=None cookies)")
	rootCmd.Flags().StringSlice("cors_allowed_origins", []string{}, "Allowed origins when CORS is enabled (required if enable_cors is true)")
	rootCmd.Flags().String("google_web_client_id", "", "Google Web OAuth Client ID; empty disables Google sign-in")

	for _, flagName := range []string{
		"listen_addr", "database_url", "inbox_database_url", "redis_addr",
		"credential_signing_key", "refresh_signing_key", "credential_ttl", "refresh_ttl",
		"cookie_domain", "default_locale", "admin_routes", "protected_routes", "login_path",
		"dev_insecure_http", "enable_cors", "cors_allowed_origins", "google_web_client_id",
	} {
		_ = viper.BindPFlag(flagName, rootCmd.Flags().Lookup(flagName))
	}

	viper.SetEnvPrefix("FOLIO")
	viper.AutomaticEnv()

	rootCmd.AddCommand(newAddUserCommand())

	return rootCmd
}

const (
	credentialCookieName = "auth-token"
	refreshCookieName    = "refresh-token"
	localeCookieName     = "locale"

	configCodeMissingCredentialKey    = "config.missing_credential_signing_key"
	configCodeMissingRefreshKey       = "config.missing_refresh_signing_key"
	configCodeIdenticalSigningKeys    = "config.identical_signing_keys"
	configCodeInvalidCredentialTTL    = "config.invalid_credential_ttl"
	configCodeInvalidRefreshTTL       = "config.invalid_refresh_ttl"
	configCodeMissingDatabaseURL      = "config.missing_database_url"
	configCodeUninitializedServerConf = "config.uninitialized_server_config"
	configCodeGoogleValidatorInit     = "config.google_validator_init"
)

type contextKey string

const serverConfigContextKey contextKey = "serverConfig"

func prepareServerConfig(command *cobra.Command, arguments []string) error {
	serverConfig, loadErr := LoadServerConfig()
	if loadErr != nil {
		return loadErr
	}
	existingContext := command.Context()
	if existingContext == nil {
		existingContext = context.Background()
	}
	command.SetContext(context.WithValue(existingContext, serverConfigContextKey, serverConfig))
	return nil
}

func configError(code, message string) error {
	return fmt.Errorf("%s: %s", code, message)
}

func LoadServerConfig() (authgate.ServerConfig, error) {
	credentialSigningKey := viper.GetString("credential_signing_key")
	if credentialSigningKey == "" {
		return authgate.ServerConfig{}, configError(configCodeMissingCredentialKey, "credential_signing_key must be provided")
	}

	refreshSigningKey := viper.GetString("refresh_signing_key")
	if refreshSigningKey == "" {
		return authgate.ServerConfig{}, configError(configCodeMissingRefreshKey, "refresh_signing_key must be provided")
	}
	if refreshSigningKey == credentialSigningKey {
		return authgate.ServerConfig{}, configError(configCodeIdenticalSigningKeys, "refresh_signing_key must differ from credential_signing_key")
	}

	credentialTTL := viper.GetDuration("credential_ttl")
	if credentialTTL <= 0 {
		return authgate.ServerConfig{}, configError(configCodeInvalidCredentialTTL, "credential_ttl must be greater than zero")
	}

	refreshTTL := viper.GetDuration("refresh_ttl")
	if refreshTTL <= 0 {
		return authgate.ServerConfig{}, configError(configCodeInvalidRefreshTTL, "refresh_ttl must be greater than zero")
	}

	if viper.GetString("database_url") == "" {
		return authgate.ServerConfig{}, configError(configCodeMissingDatabaseURL, "database_url must be provided")
	}

	return authgate.ServerConfig{
		CredentialSigningKey: []byte(credentialSigningKey),
		RefreshSigningKey:    []byte(refreshSigningKey),
		Issuer:               "folio",
		CookieDomain:         viper.GetString("cookie_domain"),
		CredentialCookieName: credentialCookieName,
		RefreshCookieName:    refreshCookieName,
		LocaleCookieName:     localeCookieName,
		CredentialTTL:        credentialTTL,
		RefreshTTL:           refreshTTL,
		GoogleWebClientID:    viper.GetString("google_web_client_id"),
	}, nil
}

func runServer(command *cobra.Command, arguments []string) error {
	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return loggerErr
	}
	defer func() { _ = logger.Sync() }()

	commandContext := command.Context()
	var contextValue any
	if commandContext != nil {
		contextValue = commandContext.Value(serverConfigContextKey)
	}
	serverConfig, ok := contextValue.(authgate.ServerConfig)
	if !ok {
		return configError(configCodeUninitializedServerConf, "server configuration not prepared; PreRunE must execute before RunE")
	}

	listenAddr := viper.GetString("listen_addr")
	devInsecureHTTP := viper.GetBool("dev_insecure_http")
	databaseURL := viper.GetString("database_url")
	inboxDatabaseURL := viper.GetString("inbox_database_url")
	redisAddr := viper.GetString("redis_addr")
	defaultLocale := viper.GetString("default_locale")
	enableCORS := viper.GetBool("enable_cors")
	corsAllowedOrigins := viper.GetStringSlice("cors_allowed_origins")

	serverConfig.AllowInsecureHTTP = devInsecureHTTP
	serverConfig.SameSiteMode = http.SameSiteLaxMode
	if enableCORS {
		serverConfig.SameSiteMode = http.SameSiteNoneMode
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(zapLoggerMiddleware(logger))

	if enableCORS {
		corsMiddleware, corsErr := web.ConfigureCORS(logger, corsAllowedOrigins)
		if corsErr != nil {
			return corsErr
		}
		router.Use(corsMiddleware)
	}

	database, databaseErr := store.Open(command.Context(), databaseURL)
	if databaseErr != nil {
		return databaseErr
	}
	logger.Info("content database ready", zap.String("driver", database.Driver()))

	userStore := store.NewUsers(database)
	contentStore := store.NewContent(database)

	var messageStore store.MessageStore = store.NewMessages(database)
	if inboxDatabaseURL != "" {
		pool, poolErr := inboxpg.BuildPool(command.Context(), inboxDatabaseURL)
		if poolErr != nil {
			return poolErr
		}
		defer pool.Close()
		if schemaErr := inboxpg.EnsureSchema(command.Context(), pool); schemaErr != nil {
			return schemaErr
		}
		messageStore = inboxpg.NewPostgresMessageStore(pool)
		logger.Info("using postgres message inbox")
	}

	var loginLimiter gin.HandlerFunc
	if redisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer func() { _ = redisClient.Close() }()
		loginLimiter = ratelimit.LoginThrottle(ratelimit.Config{}, redisClient, logger)
		logger.Info("login throttle enabled", zap.String("redis_addr", redisAddr))
	}

	var googleValidator authgate.GoogleTokenValidator
	if serverConfig.GoogleWebClientID != "" {
		validator, validatorErr := buildGoogleTokenValidator(command.Context())
		if validatorErr != nil {
			return fmt.Errorf("%s: %w", configCodeGoogleValidatorInit, validatorErr)
		}
		googleValidator = validator
	}

	clock := authgate.NewSystemClock()
	metricsRecorder := authgate.NewCounterMetrics()
	authenticator := authgate.NewAuthenticator(serverConfig, userStore, clock, logger, metricsRecorder)
	verifier := authgate.NewSessionVerifier(serverConfig, clock)

	gateConfig := authgate.GateConfig{
		AdminPrefixes:     viper.GetStringSlice("admin_routes"),
		ProtectedPrefixes: viper.GetStringSlice("protected_routes"),
		LoginPath:         viper.GetString("login_path"),
		DefaultLocale:     defaultLocale,
	}
	router.Use(authgate.RouteGate(serverConfig, gateConfig, verifier))

	authgate.MountAuthRoutes(router, serverConfig, authenticator, verifier, userStore, googleValidator, loginLimiter)
	authgate.MountMetricsRoute(router, serverConfig, verifier, metricsRecorder)
	web.MountContentRoutes(router, serverConfig, verifier, web.ContentHandlers{
		Content:       contentStore,
		Messages:      messageStore,
		Logger:        logger,
		DefaultLocale: defaultLocale,
	})

	router.GET(gateConfig.LoginPath, func(contextGin *gin.Context) {
		web.ServeEmbeddedPage(contextGin, webassets.FS, "login.html")
	})
	router.GET("/static/login.js", func(contextGin *gin.Context) {
		web.ServeEmbeddedStaticJS(contextGin, webassets.FS, "login.js")
	})
	router.GET("/static/site-config.js", func(contextGin *gin.Context) {
		web.ServeSiteConfigJS(contextGin, web.SiteConfig{
			GoogleClientID: serverConfig.GoogleWebClientID,
			DefaultLocale:  defaultLocale,
		})
	})

	server := &http.Server{
		Addr:              listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()

	go func() {
		stopSignals := make(chan os.Signal, 1)
		signal.Notify(stopSignals, syscall.SIGINT, syscall.SIGTERM)
		<-stopSignals
		graceCtx, graceCancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		defer graceCancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", listenAddr))
	if err := serveHTTP(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen error: %w", err)
	}
	return nil
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		startTime := time.Now()
		contextGin.Next()
		duration := time.Since(startTime)
		logger.Info("http",
			zap.String("method", contextGin.Request.Method),
			zap.String("path", contextGin.Request.URL.Path),
			zap.Int("status", contextGin.Writer.Status()),
			zap.String("ip", contextGin.ClientIP()),
			zap.Duration("elapsed", duration),
		)
	}
}
