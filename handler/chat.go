package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"tgn-site/internal/domain"
	"tgn-site/internal/usecase"
)

type chatUseCase interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

// ChatHandler serves the conversational endpoint. Every error still carries a
// user-facing reply so the frontend can render the assistant persona
// apologizing instead of a bare failure.
type ChatHandler struct {
	uc     chatUseCase
	logger *slog.Logger
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	// History is decoded leniently: a malformed turn list degrades to an
	// empty context rather than failing the request.
	History json.RawMessage `json:"history"`
}

type chatResponse struct {
	Reply     string          `json:"reply"`
	Sources   []domain.Source `json:"sources"`
	SessionID string          `json:"sessionId"`
	Success   bool            `json:"success"`
}

type chatErrorResponse struct {
	Error string `json:"error"`
	Reply string `json:"reply"`
}

func NewChatHandler(uc chatUseCase, logger *slog.Logger) (*ChatHandler, error) {
	if uc == nil {
		return nil, errors.New("handler: chat usecase must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{uc: uc, logger: logger}, nil
}

func (h *ChatHandler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corr := correlationID(event.Headers)

	if event.HTTPMethod == http.MethodOptions {
		return preflightResponse(corr), nil
	}
	if event.HTTPMethod != http.MethodPost {
		return jsonResponse(http.StatusMethodNotAllowed, corr, apiError{Error: "リクエストエラー"}), nil
	}

	var req chatRequest
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
		return jsonResponse(http.StatusBadRequest, corr, chatErrorResponse{
			Error: "メッセージが必要です",
			Reply: "メッセージを入力してね！",
		}), nil
	}

	out, err := h.uc.Chat(ctx, usecase.ChatInput{
		Message:   req.Message,
		SessionID: req.SessionID,
		History:   decodeHistory(req.History),
		ClientKey: clientIP(event),
		UserAgent: headerValue(event.Headers, "User-Agent"),
	})
	if err != nil {
		status, body := chatErrorFor(err)
		h.logger.Error("chat request failed", "correlationId", corr, "status", status, "err", err)
		return jsonResponse(status, corr, body), nil
	}

	return jsonResponse(http.StatusOK, corr, chatResponse{
		Reply:     out.Reply,
		Sources:   out.Sources,
		SessionID: out.SessionID,
		Success:   true,
	}), nil
}

func decodeHistory(raw json.RawMessage) []domain.Turn {
	if len(raw) == 0 {
		return nil
	}
	var turns []domain.Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil
	}
	return turns
}

func chatErrorFor(err error) (int, chatErrorResponse) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, chatErrorResponse{
			Error: "サーバーエラー",
			Reply: "ネットワークエラーが起きちゃった😢 しばらくしてからもう一度試してね！",
		}
	}

	switch ucErr.Code {
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests, chatErrorResponse{
			Error: "レート制限",
			Reply: "ちょっと質問が多すぎるみたい😅 少し待ってからまた聞いてね！",
		}
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, chatErrorResponse{
			Error: "メッセージが必要です",
			Reply: "メッセージを入力してね！",
		}
	case usecase.ErrorTooLong:
		return http.StatusBadRequest, chatErrorResponse{
			Error: "メッセージが長すぎます",
			Reply: "メッセージが長すぎるよ😅 もう少し短くしてね！",
		}
	case usecase.ErrorUpstreamUnavailable:
		return http.StatusInternalServerError, chatErrorResponse{
			Error: "AI応答エラー",
			Reply: "ごめんね、ちょっと調子が悪いみたい😅 もう一度試してみて！",
		}
	case usecase.ErrorUpstreamMalformed:
		return http.StatusInternalServerError, chatErrorResponse{
			Error: "応答を取得できませんでした",
			Reply: "ごめんね、ちょっとうまく答えられなかったみたい😅 もう一度聞いてくれる?",
		}
	case usecase.ErrorInternal:
		return http.StatusInternalServerError, chatErrorResponse{
			Error: "サーバー設定エラー",
			Reply: "ごめんね、今サーバーの設定に問題があるみたい😢 管理者に連絡してね！",
		}
	default:
		return http.StatusInternalServerError, chatErrorResponse{
			Error: "サーバーエラー",
			Reply: "ネットワークエラーが起きちゃった😢 しばらくしてからもう一度試してね！",
		}
	}
}
