// Command devserver serves the chat function over plain HTTP for local
// development. Variables from a .env file in the working directory are loaded
// before configuration is read.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"bilingual-tutor/handler"
	"bilingual-tutor/internal/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := bootstrap.LoadConfig()
	bootstrap.SetupLogging(cfg.LogLevel)

	h, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		slog.Error("failed to build handler", "err", err)
		os.Exit(1)
	}

	addr := os.Getenv("DEV_ADDR")
	if addr == "" {
		addr = ":8888"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.HTTPHandler(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "err", err)
		}
	}()

	slog.Info("dev server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}
