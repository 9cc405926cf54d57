package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"tgn-site/internal/domain"
)

type newsUseCase interface {
	Unified(ctx context.Context) ([]domain.NewsItem, error)
}

// NewsHandler serves the unified news list.
type NewsHandler struct {
	uc     newsUseCase
	logger *slog.Logger
}

type newsResponse struct {
	Items []domain.NewsItem `json:"items"`
}

func NewNewsHandler(uc newsUseCase, logger *slog.Logger) (*NewsHandler, error) {
	if uc == nil {
		return nil, errors.New("handler: news usecase must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NewsHandler{uc: uc, logger: logger}, nil
}

func (h *NewsHandler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corr := correlationID(event.Headers)

	if event.HTTPMethod != http.MethodGet {
		return jsonResponse(http.StatusMethodNotAllowed, corr, apiError{Error: "リクエストエラー"}), nil
	}

	items, err := h.uc.Unified(ctx)
	if err != nil {
		h.logger.Error("news aggregation failed", "correlationId", corr, "err", err)
		return jsonResponse(http.StatusInternalServerError, corr, apiError{Error: "ニュースの取得に失敗しました"}), nil
	}
	if items == nil {
		items = []domain.NewsItem{}
	}
	return jsonResponse(http.StatusOK, corr, newsResponse{Items: items}), nil
}
