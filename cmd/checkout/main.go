package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"tgn-site/handler"
	"tgn-site/internal/integrations/paramstore"
	"tgn-site/internal/integrations/stripe"
)

func main() {
	ctx := context.Background()

	paramPrefix := mustEnv("PARAM_PREFIX")

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

	stripeClient, err := stripe.NewClient(ssmClient, paramPrefix)
	if err != nil {
		slog.Error("failed to create Stripe client", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewCheckoutHandler(stripeClient, slog.Default())
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
