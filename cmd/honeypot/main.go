package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/honeypot/internal/honeypot/handler"
	"github.com/jmerrifield20/honeypot/internal/honeypot/service"
	"github.com/jmerrifield20/honeypot/internal/interaction"
	"github.com/jmerrifield20/honeypot/internal/realtime"
	"github.com/jmerrifield20/honeypot/internal/reply"
	"github.com/jmerrifield20/honeypot/internal/threat"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// defaultAPIKey is the built-in shared secret used when auth.api_key is unset.
const defaultAPIKey = "honeypot-secret-key-2026"

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("honeypot exited with error", zap.Error(err))
	}
}

// config holds the server settings resolved from file, env and defaults.
type config struct {
	Port         int
	CORSOrigins  []string
	RateLimitRPS int
	MaxBodyBytes int64
	APIKey       string
}

// loadConfig reads .env, then honeypot.yaml from configs/ or the working
// directory, then environment overrides.
func loadConfig(logger *zap.Logger) (config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("could not load .env", zap.Error(err))
	}

	v := viper.New()
	v.SetConfigName("honeypot")
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Hosting platforms inject a bare PORT.
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit_rps", 20)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("auth.api_key", defaultAPIKey)

	if err := v.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgNotFound) {
			return config{}, fmt.Errorf("read config: %w", err)
		}
		logger.Info("no config file found, using defaults and env vars")
	}

	cfg := config{
		Port:         v.GetInt("server.port"),
		CORSOrigins:  v.GetStringSlice("server.cors_origins"),
		RateLimitRPS: v.GetInt("server.rate_limit_rps"),
		MaxBodyBytes: v.GetInt64("server.max_body_bytes"),
		APIKey:       v.GetString("auth.api_key"),
	}
	if cfg.APIKey == defaultAPIKey {
		logger.Warn("using built-in API key; set auth.api_key (AUTH_API_KEY) to override")
	}
	return cfg, nil
}

// server bundles the router with the state run needs at shutdown.
type server struct {
	router *gin.Engine
	log    *interaction.MemoryLog
	hub    *realtime.Hub
}

// newServer wires every layer and builds the router. The caller starts the
// hub with hub.Run. ctx bounds the rate limiter sweepers.
func newServer(ctx context.Context, cfg config, logger *zap.Logger) *server {
	// ── Wire up layers ────────────────────────────────────────────────────────
	scorer := threat.NewKeywordScorer()
	log := interaction.NewMemoryLog()

	hub := realtime.NewHub(logger)
	hub.OnClientCount(handler.SetStreamClients)
	log.Subscribe(hub.Publish)
	log.Subscribe(func(interaction.Record) { handler.SetLogSize(log.Len()) })

	svc := service.NewHoneypotService(scorer, reply.NewPicker(), log, logger)

	validateHandler := handler.NewValidateHandler(svc, cfg.APIKey, logger)
	adminHandler := handler.NewAdminHandler(svc, scorer, hub, cfg.APIKey, logger)

	// ── HTTP Router ───────────────────────────────────────────────────────────
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Api-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(cfg.CORSOrigins),
		MaxAge:           12 * time.Hour,

		// Preflights answer 200 like a plain OPTIONS /api/validate.
		OptionsResponseStatusCode: http.StatusOK,
	}))

	// Request body size limit
	maxBody := cfg.MaxBodyBytes
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)
		c.Next()
	})

	router.Use(handler.PrometheusMiddleware())
	router.Use(requestLogger(logger))

	// Per-IP rate limiting. /api/validate throttles after the key check and
	// answers over-limit callers with a synthetic 200; everything else gets 429.
	limited := router.Group("/")
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitRPS * 2
		limited.Use(handler.RateLimiter(ctx, cfg.RateLimitRPS, burst))
		validateHandler.SetRateLimiter(handler.RateLimiter(ctx, cfg.RateLimitRPS, burst,
			handler.OnLimit(validateHandler.Throttled)))
	}

	limited.GET("/", handler.Liveness)
	limited.GET("/healthz", handler.Healthz)
	limited.GET("/metrics", handler.MetricsHandler())
	adminHandler.Register(limited)

	validateHandler.Register(&router.RouterGroup)

	return &server{router: router, log: log, hub: hub}
}

func run(logger *zap.Logger) error {
	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := newServer(ctx, cfg, logger)
	go srv.hub.Run(ctx)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("honeypot HTTP listening", zap.Int("port", cfg.Port))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// ── Graceful shutdown ──────────────────────────────────────────────────────
	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP listen: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down honeypot...", zap.Int("records", srv.log.Len()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("honeypot stopped")
	return nil
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

// requestLogger returns a Gin middleware that logs each request with zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
