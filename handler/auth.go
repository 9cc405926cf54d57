package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"tgn-site/internal/auth"
)

type parameterGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// AuthHandler issues the admin cookie on login (POST) and reports cookie
// validity (GET). The admin password lives in the parameter store and is
// cached for the process lifetime.
type AuthHandler struct {
	getter      parameterGetter
	paramPrefix string
	logger      *slog.Logger
	now         func() time.Time

	pwOnce sync.Once
	pw     string
	pwErr  error
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Error   string `json:"error,omitempty"`
}

type authCheckResponse struct {
	Authenticated bool `json:"authenticated"`
}

func NewAuthHandler(getter parameterGetter, paramPrefix string, logger *slog.Logger) (*AuthHandler, error) {
	if getter == nil {
		return nil, errors.New("handler: parameter getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("handler: parameter prefix must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		getter:      getter,
		paramPrefix: paramPrefix,
		logger:      logger,
		now:         time.Now,
	}, nil
}

func (h *AuthHandler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corr := correlationID(event.Headers)

	switch event.HTTPMethod {
	case http.MethodPost:
		return h.login(ctx, event, corr), nil
	case http.MethodGet:
		return h.check(event, corr), nil
	default:
		return jsonResponse(http.StatusMethodNotAllowed, corr, loginResponse{Success: false, Error: "リクエストエラー"}), nil
	}
}

func (h *AuthHandler) login(ctx context.Context, event events.APIGatewayProxyRequest, corr string) events.APIGatewayProxyResponse {
	var req loginRequest
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil || req.Password == "" {
		return jsonResponse(http.StatusBadRequest, corr, loginResponse{Success: false, Error: "リクエストエラー"})
	}

	want, err := h.adminPassword(ctx)
	if err != nil {
		h.logger.Error("admin password lookup failed", "correlationId", corr, "err", err)
		return jsonResponse(http.StatusInternalServerError, corr, loginResponse{Success: false, Error: "サーバーエラー"})
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(want)) != 1 {
		return jsonResponse(http.StatusUnauthorized, corr, loginResponse{Success: false, Error: "パスワードが違います"})
	}

	token := auth.IssueToken(h.now())
	resp := jsonResponse(http.StatusOK, corr, loginResponse{Success: true, Token: token})
	resp.Headers["Set-Cookie"] = auth.CookieValue(token)
	return resp
}

func (h *AuthHandler) check(event events.APIGatewayProxyRequest, corr string) events.APIGatewayProxyResponse {
	if auth.IsAuthenticated(headerValue(event.Headers, "Cookie")) {
		return jsonResponse(http.StatusOK, corr, authCheckResponse{Authenticated: true})
	}
	return jsonResponse(http.StatusUnauthorized, corr, authCheckResponse{Authenticated: false})
}

func (h *AuthHandler) adminPassword(ctx context.Context) (string, error) {
	h.pwOnce.Do(func() {
		h.pw, h.pwErr = h.getter.GetParameter(ctx, h.paramPrefix+"/admin-password")
		if h.pwErr == nil && strings.TrimSpace(h.pw) == "" {
			h.pwErr = errors.New("handler: admin password is empty")
		}
	})
	return h.pw, h.pwErr
}
