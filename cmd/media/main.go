package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"tgn-site/handler"
	"tgn-site/internal/integrations/blobstore"
)

func main() {
	ctx := context.Background()

	bucket := mustEnv("UPLOAD_BUCKET")

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	store, err := blobstore.New(awss3.NewFromConfig(cfg), bucket)
	if err != nil {
		slog.Error("failed to create blob store", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewMediaHandler(store, slog.Default())
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}
