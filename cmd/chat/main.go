package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"tgn-site/handler"
	"tgn-site/internal/integrations/gemini"
	"tgn-site/internal/integrations/paramstore"
	"tgn-site/internal/ratelimit"
	"tgn-site/internal/repository"
	"tgn-site/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	paramPrefix := mustEnv("PARAM_PREFIX")
	databaseURL := mustEnv("DATABASE_URL")
	rateLimitTable := os.Getenv("RATE_LIMIT_TABLE")
	windowSeconds := envInt("RATE_LIMIT_WINDOW_SECONDS", 60)
	quota := envInt("RATE_LIMIT_QUOTA", 10)

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}

	// The salt is secret material like the API keys: without it the stored
	// client-address digest would be brute-forceable.
	addrSalt, err := ssmClient.GetParameter(ctx, paramPrefix+"/client-addr-salt")
	if err != nil {
		slog.Error("failed to resolve client address salt", "err", err)
		os.Exit(1)
	}

	geminiClient, err := gemini.NewClient(ssmClient, paramPrefix)
	if err != nil {
		slog.Error("failed to create Gemini client", "err", err)
		os.Exit(1)
	}

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

	// The shared table makes throttling survive cold starts; without it each
	// instance falls back to its own in-memory window.
	var limiter usecase.Limiter
	if rateLimitTable != "" {
		limiter, err = ratelimit.NewDynamoLimiter(awsdynamodb.NewFromConfig(cfg), rateLimitTable, time.Duration(windowSeconds)*time.Second, quota)
		if err != nil {
			slog.Error("failed to create rate limiter", "err", err)
			os.Exit(1)
		}
	} else {
		limiter = ratelimit.NewMemoryLimiter(time.Duration(windowSeconds)*time.Second, quota)
	}

	// ---- Handler ----
	chatService, err := usecase.NewChatService(limiter, geminiClient, store, slog.Default(), addrSalt)
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewChatHandler(chatService, slog.Default())
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

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
