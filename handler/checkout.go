package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

// Donation tiers accepted by the checkout endpoint, in JPY.
var donationAmounts = map[int]bool{100: true, 500: true, 1000: true}

type checkoutClient interface {
	CreateDonationSession(ctx context.Context, amount int) (string, error)
}

// CheckoutHandler creates hosted payment sessions for the fixed donation
// tiers and hands the redirect URL back to the frontend.
type CheckoutHandler struct {
	client checkoutClient
	logger *slog.Logger
}

type checkoutRequest struct {
	Amount int `json:"amount"`
}

type checkoutResponse struct {
	URL string `json:"url"`
}

func NewCheckoutHandler(client checkoutClient, logger *slog.Logger) (*CheckoutHandler, error) {
	if client == nil {
		return nil, errors.New("handler: checkout client must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutHandler{client: client, logger: logger}, nil
}

func (h *CheckoutHandler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corr := correlationID(event.Headers)

	if event.HTTPMethod == http.MethodOptions {
		return preflightResponse(corr), nil
	}
	if event.HTTPMethod != http.MethodPost {
		return jsonResponse(http.StatusMethodNotAllowed, corr, apiError{Error: "リクエストエラー"}), nil
	}

	var req checkoutRequest
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
		return jsonResponse(http.StatusBadRequest, corr, apiError{Error: "無効な金額です"}), nil
	}
	if !donationAmounts[req.Amount] {
		return jsonResponse(http.StatusBadRequest, corr, apiError{Error: "無効な金額です"}), nil
	}

	url, err := h.client.CreateDonationSession(ctx, req.Amount)
	if err != nil {
		h.logger.Error("checkout session creation failed", "correlationId", corr, "amount", req.Amount, "err", err)
		return jsonResponse(http.StatusInternalServerError, corr, apiError{Error: "決済セッションの作成に失敗しました"}), nil
	}

	return jsonResponse(http.StatusOK, corr, checkoutResponse{URL: url}), nil
}
