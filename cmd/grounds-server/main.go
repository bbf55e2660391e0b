package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gardenops/grounds/internal/account"
	accountrepo "github.com/gardenops/grounds/internal/account/repositoryimpl"
	"github.com/gardenops/grounds/internal/attachment"
	"github.com/gardenops/grounds/internal/audit"
	"github.com/gardenops/grounds/internal/config"
	"github.com/gardenops/grounds/internal/eventbus"
	"github.com/gardenops/grounds/internal/session"
	"github.com/gardenops/grounds/internal/task"
	taskrepo "github.com/gardenops/grounds/internal/task/repositoryimpl"
	"github.com/gardenops/grounds/pkg/clog"
	"github.com/gardenops/grounds/pkg/panicerr"
	"github.com/gardenops/grounds/pkg/storage"

	server "github.com/gardenops/grounds/internal"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewHTTPTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	// Setup storage
	var store storage.Storage
	switch env.StorageEnv.Type {
	case "s3":
		store, err = storage.NewS3Storage(context.Background(), env.StorageEnv.S3Bucket, env.StorageEnv.S3Prefix, env.StorageEnv.S3Region)
		if err != nil {
			slog.Error("failed to create S3 storage", "error", err)
			os.Exit(1)
		}
	default:
		store, err = storage.NewLocalStorage(env.StorageEnv.BaseDir)
		if err != nil {
			slog.Error("failed to create local storage", "error", err)
			os.Exit(1)
		}
	}

	// Setup event bus
	bus := eventbus.New()

	// Setup repositories
	taskRepo := taskrepo.NewJSONRepository(store)
	accountRepo := accountrepo.NewJSONRepository(store)

	// Seed bootstrap accounts if configured
	if env.SeedFile != "" {
		seeds, err := account.LoadSeedFile(env.SeedFile)
		if err != nil {
			slog.Error("failed to load seed file", "error", err)
			os.Exit(1)
		}
		created, err := account.Seed(context.Background(), accountRepo, seeds)
		if err != nil {
			slog.Error("failed to seed accounts", "error", err)
			os.Exit(1)
		}
		if created > 0 {
			slog.Info("seeded accounts", "created", created)
		}
	}

	// Setup servers
	attachments := attachment.NewStore(store)
	taskServer := task.NewServer(taskRepo, accountRepo, attachments, bus)
	accountServer := account.NewServer(accountRepo, taskServer)
	sessionManager := session.NewManager(env.SessionTTL)
	sessionServer := session.NewServer(sessionManager, accountServer)
	accountServer.SetSessionInvalidator(sessionManager)

	srv := server.NewServer(env, sessionServer, taskServer, accountServer, attachments)

	auditLogger := audit.NewLogger(bus)

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	go func() {
		if err := panicerr.SafeContext(auditLogger.Start)(ctx); err != nil && ctx.Err() == nil {
			slog.Error("audit logger stopped", "error", err)
		}
	}()

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
