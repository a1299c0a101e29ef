package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx as database/sql driver
	"github.com/triage-ai/toolgate/internal/api"
	"github.com/triage-ai/toolgate/internal/audit"
	"github.com/triage-ai/toolgate/internal/auth"
	"github.com/triage-ai/toolgate/internal/gateway"
	"github.com/triage-ai/toolgate/internal/governance"
	"github.com/triage-ai/toolgate/internal/ratelimit"
	"github.com/triage-ai/toolgate/internal/registry"
	"github.com/triage-ai/toolgate/internal/schema"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Logger
	logger := mustBuildLogger(envOrDefault("TOOLGATE_LOG_LEVEL", "info"))
	defer logger.Sync() //nolint:errcheck // best-effort flush

	// Config from env
	httpPort := envOrDefault("TOOLGATE_HTTP_PORT", "8080")
	catalogPath := os.Getenv("TOOLGATE_CATALOG_PATH")
	clickhouseDSN := os.Getenv("CLICKHOUSE_DSN")
	postgresDSN := os.Getenv("POSTGRES_DSN")
	authCacheTTL := envOrDefaultInt("TOOLGATE_AUTH_CACHE_TTL_S", 30)
	invokeTimeoutS := envOrDefaultInt("TOOLGATE_INVOKE_TIMEOUT_S", 30)
	maxDepth := envOrDefaultInt("TOOLGATE_MAX_DEPTH", 4)
	killSwitch := envOrDefaultBool("TOOLGATE_KILL_SWITCH", false)

	logger.Info("starting toolgate server",
		zap.String("http_port", httpPort),
		zap.Int("invoke_timeout_s", invokeTimeoutS),
		zap.Int("max_depth", maxDepth),
		zap.Bool("kill_switch", killSwitch),
	)

	// Postgres pool — shared by auth and the catalog source
	var db *sql.DB
	if postgresDSN != "" {
		var err error
		db, err = sql.Open("pgx", postgresDSN)
		if err != nil {
			logger.Fatal("failed to open postgres", zap.Error(err))
		}
		defer func() { _ = db.Close() }()
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(context.Background()); err != nil {
			logger.Fatal("failed to ping postgres", zap.Error(err))
		}
		logger.Info("postgres connected")
	}

	// Registry — static catalog loaded once, from file and/or Postgres
	reg := registry.New()
	if catalogPath != "" {
		n, err := registry.LoadCatalogFile(reg, catalogPath)
		if err != nil {
			logger.Fatal("catalog file load failed", zap.String("path", catalogPath), zap.Error(err))
		}
		logger.Info("catalog file loaded", zap.String("path", catalogPath), zap.Int("tools", n))
	}
	if db != nil {
		src := registry.NewPostgresCatalogSource(db, logger)
		n, err := src.LoadAll(context.Background(), reg)
		if err != nil {
			logger.Fatal("postgres catalog load failed", zap.Error(err))
		}
		logger.Info("postgres catalog loaded", zap.Int("tools", n))
	}
	if reg.Len() == 0 {
		logger.Warn("no tools registered; set TOOLGATE_CATALOG_PATH or POSTGRES_DSN")
	}

	// Governance — rate limiter budgets overridable per tier
	limiter := ratelimit.New(budgetsFromEnv(logger))
	state := governance.NewState()
	state.SetKillSwitch(killSwitch)
	policy := governance.NewPolicy(limiter, state, logger)

	// Audit — ClickHouse or LogWriter fallback
	var writer audit.Writer
	if clickhouseDSN != "" {
		chWriter, err := audit.NewClickHouseWriter(clickhouseDSN, logger)
		if err != nil {
			logger.Warn("clickhouse connection failed, falling back to log writer",
				zap.Error(err),
			)
			writer = audit.NewLogWriter(logger)
		} else {
			writer = chWriter
			logger.Info("clickhouse writer connected")
		}
	} else {
		writer = audit.NewLogWriter(logger)
		logger.Info("no CLICKHOUSE_DSN set, using log writer")
	}
	defer writer.Close()

	// Auth — Postgres if available, otherwise static (development)
	var authenticator auth.Authenticator
	if db != nil {
		authenticator = auth.NewPostgresAuthenticator(auth.PostgresAuthConfig{
			DB:       db,
			CacheTTL: time.Duration(authCacheTTL) * time.Second,
			Logger:   logger,
		})
		logger.Info("postgres authenticator connected")
	} else {
		authenticator = auth.NewStaticAuthenticator()
		logger.Info("using static authenticator (no POSTGRES_DSN)")
	}

	// Dispatcher — bind an HTTP collaborator for every catalog entry that
	// carries an endpoint. Tools without one stay resolvable but fail at
	// dispatch until a collaborator is bound.
	dispatcher := gateway.NewDispatcher(reg, policy, writer, gateway.Config{
		InvokeTimeout: time.Duration(invokeTimeoutS) * time.Second,
		MaxDepth:      maxDepth,
	}, logger)
	bound := 0
	for desc := range reg.List(nil) {
		if desc.Endpoint == "" {
			logger.Warn("tool has no collaborator endpoint", zap.String("tool_name", desc.Name))
			continue
		}
		if err := dispatcher.Bind(desc.Name, gateway.NewHTTPCollaborator(desc.Endpoint)); err != nil {
			logger.Fatal("collaborator bind failed", zap.String("tool_name", desc.Name), zap.Error(err))
		}
		bound++
	}
	logger.Info("collaborators bound", zap.Int("bound", bound), zap.Int("registered", reg.Len()))

	// HTTP server
	deps := &api.Dependencies{
		Registry:    reg,
		Dispatcher:  dispatcher,
		Synthesizer: schema.NewSynthesizer(reg),
		Auth:        authenticator,
		Writer:      writer,
		Logger:      logger,
	}
	httpServer := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: time.Duration(invokeTimeoutS+10) * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Block until shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", zap.String("signal", sig.String()))

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	logger.Info("toolgate server stopped")
}

// budgetsFromEnv reads per-tier bucket overrides, e.g.
// TOOLGATE_CRITICAL_CAPACITY=5 TOOLGATE_CRITICAL_REFILL=0.05.
// Unset tiers keep the default budgets.
func budgetsFromEnv(logger *zap.Logger) map[registry.Classification]ratelimit.Budget {
	budgets := make(map[registry.Classification]ratelimit.Budget)
	defaults := ratelimit.DefaultBudgets()
	for _, class := range registry.Classifications() {
		prefix := "TOOLGATE_" + strings.ToUpper(string(class))
		b := defaults[class]
		overridden := false
		if v := os.Getenv(prefix + "_CAPACITY"); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				b.Capacity = f
				overridden = true
			}
		}
		if v := os.Getenv(prefix + "_REFILL"); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				b.RefillRate = f
				overridden = true
			}
		}
		if overridden {
			logger.Info("rate budget overridden",
				zap.String("classification", string(class)),
				zap.Float64("capacity", b.Capacity),
				zap.Float64("refill_rate", b.RefillRate),
			)
		}
		budgets[class] = b
	}
	return budgets
}

func mustBuildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	return logger
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envOrDefaultBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}
