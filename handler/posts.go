package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"tgn-site/internal/auth"
	"tgn-site/internal/domain"
	"tgn-site/internal/repository"
)

type postStore interface {
	ListPosts(ctx context.Context) ([]domain.Post, error)
	GetPost(ctx context.Context, id int64) (domain.Post, error)
	CreatePost(ctx context.Context, p domain.Post) (int64, error)
	UpdatePost(ctx context.Context, p domain.Post) error
	DeletePost(ctx context.Context, id int64) error
}

// PostsHandler is the article CRUD endpoint. Reads are public; every
// mutation requires the admin cookie.
type PostsHandler struct {
	store  postStore
	logger *slog.Logger
	now    func() time.Time
}

type postPayload struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	Category    string  `json:"category"`
	ImageURL    *string `json:"image_url"`
	PublishedAt *string `json:"published_at"`
}

type postListResponse struct {
	Posts []domain.Post `json:"posts"`
}

type mutationResponse struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id,omitempty"`
}

type apiError struct {
	Error string `json:"error"`
}

func NewPostsHandler(store postStore, logger *slog.Logger) (*PostsHandler, error) {
	if store == nil {
		return nil, errors.New("handler: post store must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostsHandler{store: store, logger: logger, now: time.Now}, nil
}

func (h *PostsHandler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corr := correlationID(event.Headers)

	switch event.HTTPMethod {
	case http.MethodGet:
		return h.get(ctx, event, corr), nil
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		if !auth.IsAuthenticated(headerValue(event.Headers, "Cookie")) {
			return jsonResponse(http.StatusUnauthorized, corr, apiError{Error: "認証が必要です"}), nil
		}
	default:
		return jsonResponse(http.StatusMethodNotAllowed, corr, apiError{Error: "リクエストエラー"}), nil
	}

	switch event.HTTPMethod {
	case http.MethodPost:
		return h.create(ctx, event, corr), nil
	case http.MethodPut:
		return h.update(ctx, event, corr), nil
	default:
		return h.remove(ctx, event, corr), nil
	}
}

func (h *PostsHandler) get(ctx context.Context, event events.APIGatewayProxyRequest, corr string) events.APIGatewayProxyResponse {
	if raw := event.QueryStringParameters["id"]; raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return jsonResponse(http.StatusNotFound, corr, apiError{Error: "記事が見つかりません"})
		}
		post, err := h.store.GetPost(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return jsonResponse(http.StatusNotFound, corr, apiError{Error: "記事が見つかりません"})
		}
		if err != nil {
			h.logger.Error("post lookup failed", "correlationId", corr, "id", id, "err", err)
			return jsonResponse(http.StatusInternalServerError, corr, apiError{Error: "データベースエラー"})
		}
		return jsonResponse(http.StatusOK, corr, post)
	}

	posts, err := h.store.ListPosts(ctx)
	if err != nil {
		h.logger.Error("post list failed", "correlationId", corr, "err", err)
		return jsonResponse(http.StatusInternalServerError, corr, apiError{Error: "データベースエラー"})
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	return jsonResponse(http.StatusOK, corr, postListResponse{Posts: posts})
}

func (h *PostsHandler) create(ctx context.Context, event events.APIGatewayProxyRequest, corr string) events.APIGatewayProxyResponse {
	var req postPayload
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil || req.Title == "" || req.Content == "" {
		return jsonResponse(http.StatusBadRequest, corr, apiError{Error: "タイトルと本文は必須です"})
	}

	id, err := h.store.CreatePost(ctx, h.toPost(req))
	if err != nil {
		h.logger.Error("post create failed", "correlationId", corr, "err", err)
		return jsonResponse(http.StatusInternalServerError, corr, apiError{Error: "記事の作成に失敗しました"})
	}
	return jsonResponse(http.StatusOK, corr, mutationResponse{Success: true, ID: id})
}

func (h *PostsHandler) update(ctx context.Context, event events.APIGatewayProxyRequest, corr string) events.APIGatewayProxyResponse {
	var req postPayload
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil || req.ID == 0 {
		return jsonResponse(http.StatusBadRequest, corr, apiError{Error: "IDが必要です"})
	}

	err := h.store.UpdatePost(ctx, h.toPost(req))
	if errors.Is(err, repository.ErrNotFound) {
		return jsonResponse(http.StatusNotFound, corr, apiError{Error: "記事が見つかりません"})
	}
	if err != nil {
		h.logger.Error("post update failed", "correlationId", corr, "id", req.ID, "err", err)
		return jsonResponse(http.StatusInternalServerError, corr, apiError{Error: "記事の更新に失敗しました"})
	}
	return jsonResponse(http.StatusOK, corr, mutationResponse{Success: true})
}

func (h *PostsHandler) remove(ctx context.Context, event events.APIGatewayProxyRequest, corr string) events.APIGatewayProxyResponse {
	raw := event.QueryStringParameters["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if raw == "" || err != nil {
		return jsonResponse(http.StatusBadRequest, corr, apiError{Error: "IDが必要です"})
	}

	if err := h.store.DeletePost(ctx, id); err != nil {
		h.logger.Error("post delete failed", "correlationId", corr, "id", id, "err", err)
		return jsonResponse(http.StatusInternalServerError, corr, apiError{Error: "記事の削除に失敗しました"})
	}
	return jsonResponse(http.StatusOK, corr, mutationResponse{Success: true})
}

// toPost applies the write-time defaults: category "info" and today's date
// as the publication date when the caller supplies neither.
func (h *PostsHandler) toPost(req postPayload) domain.Post {
	category := req.Category
	if category == "" {
		category = "info"
	}
	publishedAt := req.PublishedAt
	if publishedAt == nil || *publishedAt == "" {
		today := h.now().UTC().Format("2006-01-02")
		publishedAt = &today
	}
	return domain.Post{
		ID:          req.ID,
		Title:       req.Title,
		Content:     req.Content,
		Category:    category,
		ImageURL:    req.ImageURL,
		PublishedAt: publishedAt,
	}
}
