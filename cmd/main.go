package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"bilingual-tutor/internal/bootstrap"
)

func main() {
	ctx := context.Background()

	cfg := bootstrap.LoadConfig()
	bootstrap.SetupLogging(cfg.LogLevel)

	h, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		slog.Error("failed to build handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
