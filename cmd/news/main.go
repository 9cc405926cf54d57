package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"tgn-site/handler"
	"tgn-site/internal/feed"
	"tgn-site/internal/repository"
	"tgn-site/internal/usecase"
)

func main() {
	ctx := context.Background()

	databaseURL := mustEnv("DATABASE_URL")

	var feedOpts []feed.Option
	if u := os.Getenv("FEED_URL"); u != "" {
		feedOpts = append(feedOpts, feed.WithFeedURL(u))
	}
	feedClient := feed.New(slog.Default(), feedOpts...)

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "err", err)
		os.Exit(1)
	}

	store, err := repository.New(pool)
	if err != nil {
		slog.Error("failed to create store", "err", err)
		os.Exit(1)
	}

	newsService, err := usecase.NewNewsService(feedClient, store, slog.Default())
	if err != nil {
		slog.Error("failed to create news service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewNewsHandler(newsService, slog.Default())
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
