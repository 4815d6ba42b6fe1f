package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"gastos/internal/api"
	"gastos/internal/config"
	"gastos/internal/logging"
	"gastos/internal/session"
	"gastos/pkg/ledger"
)

var getppid = os.Getppid
var sleep = time.Sleep
var exit = os.Exit

func main() {
	config.LoadDotEnv()
	cfg := config.Load()

	flag.IntVar(&cfg.Port, "port", cfg.Port, "Port to run the server on")
	flag.StringVar(&cfg.Host, "host", cfg.Host, "Host to bind the server to")
	flag.StringVar(&cfg.WebDir, "web-dir", cfg.WebDir, "Directory for the dashboard static files (optional)")
	flag.Parse()

	logger, writer, err := logging.NewLogger(logging.Options{
		Dir:    cfg.LogDir,
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	if err != nil {
		slog.Error("failed to initialize logger", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("failed to close log writer", "err", err)
		}
	}()

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger.Info("configuration loaded", "config", cfg)

	core, err := ledger.Open(cfg.LedgerOptions(logger))
	if err != nil {
		logger.Error("failed to initialize core", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := core.Close(); err != nil {
			logger.Error("failed to close core", "err", err)
		}
	}()

	store, closeStore, err := openSessionStore(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize session store", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	sessions := session.NewManager(store, session.Options{
		Secret: cfg.SessionSecret,
		TTL:    cfg.SessionTTL,
		Secure: cfg.IsProduction(),
		Logger: logger,
	})

	if os.Getenv("GASTOS_PARENT_WATCH") == "1" {
		go watchParent(logger)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	handler := api.NewRouter(core, sessions, api.Options{
		Environment:    cfg.Env,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	if resolvedWebDir := resolveWebDir(cfg.WebDir); resolvedWebDir != "" {
		logger.Info("serving static files", "web_dir", resolvedWebDir)
		handler = api.WithStatic(handler, resolvedWebDir)
	}
	handler = middleware.Compress(5)(handler)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("server starting", "addr", addr, "env", cfg.Env, "driver", core.Driver())
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	signal.Stop(stop)

	logger.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}
}

// openSessionStore uses Redis when REDIS_ADDR is set and an in-process
// store otherwise.
func openSessionStore(cfg *config.Config, logger *slog.Logger) (session.Store, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set; sessions are kept in memory")
		return session.NewMemoryStore(), func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := session.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("redis session store connected", "addr", cfg.RedisAddr)
	return session.NewRedisStore(client), func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close redis client", "err", err)
		}
	}, nil
}

func watchParent(logger *slog.Logger) {
	for {
		sleep(1 * time.Second)
		if getppid() == 1 {
			logger.Info("parent process exited; shutting down")
			exit(0)
		}
	}
}

func resolveWebDir(input string) string {
	if input != "" {
		if dirExists(input) {
			return input
		}
		return ""
	}

	candidates := []string{"public", "../public"}
	for _, candidate := range candidates {
		if dirExists(candidate) {
			return candidate
		}
	}
	if exe, err := os.Executable(); err == nil {
		base := filepath.Dir(exe)
		for _, candidate := range candidates {
			path := filepath.Join(base, candidate)
			if dirExists(path) {
				return path
			}
		}
	}
	return ""
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
