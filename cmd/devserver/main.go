// Command devserver runs every endpoint behind one local HTTP server so the
// frontend can be developed against the real handlers without a deployment.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tgn-site/handler"
	"tgn-site/internal/feed"
	"tgn-site/internal/integrations/blobstore"
	"tgn-site/internal/integrations/gemini"
	"tgn-site/internal/integrations/paramstore"
	"tgn-site/internal/integrations/stripe"
	"tgn-site/internal/ratelimit"
	"tgn-site/internal/repository"
	"tgn-site/internal/usecase"
)

func main() {
	ctx := context.Background()

	addr := envOr("ADDR", ":8787")
	paramPrefix := mustEnv("PARAM_PREFIX")
	databaseURL := mustEnv("DATABASE_URL")
	bucket := mustEnv("UPLOAD_BUCKET")

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}

	addrSalt, err := ssmClient.GetParameter(ctx, paramPrefix+"/client-addr-salt")
	if err != nil {
		slog.Error("failed to resolve client address salt", "err", err)
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

	geminiClient, err := gemini.NewClient(ssmClient, paramPrefix)
	if err != nil {
		slog.Error("failed to create Gemini client", "err", err)
		os.Exit(1)
	}

	stripeClient, err := stripe.NewClient(ssmClient, paramPrefix)
	if err != nil {
		slog.Error("failed to create Stripe client", "err", err)
		os.Exit(1)
	}

	blobs, err := blobstore.New(awss3.NewFromConfig(cfg), bucket)
	if err != nil {
		slog.Error("failed to create blob store", "err", err)
		os.Exit(1)
	}

	// One process serves everything locally; the in-memory window is enough.
	limiter := ratelimit.NewMemoryLimiter(ratelimit.DefaultWindow, ratelimit.DefaultQuota)

	chatService, err := usecase.NewChatService(limiter, geminiClient, store, slog.Default(), addrSalt)
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}
	newsService, err := usecase.NewNewsService(feed.New(slog.Default()), store, slog.Default())
	if err != nil {
		slog.Error("failed to create news service", "err", err)
		os.Exit(1)
	}

	chatHandler, err := handler.NewChatHandler(chatService, slog.Default())
	if err != nil {
		slog.Error("failed to create chat handler", "err", err)
		os.Exit(1)
	}
	authHandler, err := handler.NewAuthHandler(ssmClient, paramPrefix, slog.Default())
	if err != nil {
		slog.Error("failed to create auth handler", "err", err)
		os.Exit(1)
	}
	postsHandler, err := handler.NewPostsHandler(store, slog.Default())
	if err != nil {
		slog.Error("failed to create posts handler", "err", err)
		os.Exit(1)
	}
	mediaHandler, err := handler.NewMediaHandler(blobs, slog.Default())
	if err != nil {
		slog.Error("failed to create media handler", "err", err)
		os.Exit(1)
	}
	checkoutHandler, err := handler.NewCheckoutHandler(stripeClient, slog.Default())
	if err != nil {
		slog.Error("failed to create checkout handler", "err", err)
		os.Exit(1)
	}
	newsHandler, err := handler.NewNewsHandler(newsService, slog.Default())
	if err != nil {
		slog.Error("failed to create news handler", "err", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Handle("/api/chat", handler.HTTPAdapter(chatHandler.Handle))
	r.Handle("/api/auth", handler.HTTPAdapter(authHandler.Handle))
	r.Handle("/api/posts", handler.HTTPAdapter(postsHandler.Handle))
	r.Handle("/api/upload", handler.HTTPAdapter(mediaHandler.Handle))
	r.Handle("/api/create-checkout", handler.HTTPAdapter(checkoutHandler.Handle))
	r.Handle("/api/news", handler.HTTPAdapter(newsHandler.Handle))
	r.Handle("/uploads/*", handler.HTTPAdapter(mediaHandler.Handle))

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("dev server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
