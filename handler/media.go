package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"tgn-site/internal/auth"
	"tgn-site/internal/integrations/blobstore"
)

const (
	maxUploadBytes = 10 << 20
	servePrefix    = "/uploads/"
)

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// MediaHandler accepts admin image uploads and serves stored objects with a
// long-lived cache policy. Object keys are immutable once written, which is
// what makes the one-year cache safe.
type MediaHandler struct {
	store  blobstore.Store
	logger *slog.Logger
	now    func() time.Time
}

type uploadResponse struct {
	Success  bool   `json:"success"`
	URL      string `json:"url"`
	FileName string `json:"fileName"`
}

func NewMediaHandler(store blobstore.Store, logger *slog.Logger) (*MediaHandler, error) {
	if store == nil {
		return nil, errors.New("handler: blob store must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaHandler{store: store, logger: logger, now: time.Now}, nil
}

func (h *MediaHandler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corr := correlationID(event.Headers)

	switch event.HTTPMethod {
	case http.MethodPost:
		return h.upload(ctx, event, corr), nil
	case http.MethodGet:
		return h.serve(ctx, event, corr), nil
	default:
		return jsonResponse(http.StatusMethodNotAllowed, corr, apiError{Error: "リクエストエラー"}), nil
	}
}

func (h *MediaHandler) upload(ctx context.Context, event events.APIGatewayProxyRequest, corr string) events.APIGatewayProxyResponse {
	if !auth.IsAuthenticated(headerValue(event.Headers, "Cookie")) {
		return jsonResponse(http.StatusUnauthorized, corr, apiError{Error: "認証が必要です"})
	}

	file, err := extractFilePart(event)
	if err != nil {
		return jsonResponse(http.StatusBadRequest, corr, apiError{Error: "ファイルが必要です"})
	}

	key := strconv.FormatInt(h.now().UnixMilli(), 10) + "-" + sanitizeFileName(file.name)
	if err := h.store.Put(ctx, key, file.contentType, strings.NewReader(file.body)); err != nil {
		h.logger.Error("upload failed", "correlationId", corr, "key", key, "err", err)
		return jsonResponse(http.StatusInternalServerError, corr, apiError{Error: "アップロードに失敗しました"})
	}

	return jsonResponse(http.StatusOK, corr, uploadResponse{
		Success:  true,
		URL:      servePrefix + key,
		FileName: key,
	})
}

func (h *MediaHandler) serve(ctx context.Context, event events.APIGatewayProxyRequest, corr string) events.APIGatewayProxyResponse {
	key := objectKey(event)
	if key == "" {
		return plainResponse(http.StatusNotFound, "Not Found")
	}

	obj, err := h.store.Get(ctx, key)
	if errors.Is(err, blobstore.ErrNotFound) {
		return plainResponse(http.StatusNotFound, "Not Found")
	}
	if err != nil {
		h.logger.Error("object fetch failed", "correlationId", corr, "key", key, "err", err)
		return plainResponse(http.StatusInternalServerError, "Error")
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Content-Type":  obj.ContentType,
			"Cache-Control": "public, max-age=31536000",
		},
		Body:            base64.StdEncoding.EncodeToString(obj.Body),
		IsBase64Encoded: true,
	}
}

func plainResponse(status int, body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		Body:       body,
	}
}

// objectKey resolves the stored key from either the greedy path parameter or
// the raw request path.
func objectKey(event events.APIGatewayProxyRequest) string {
	if p := event.PathParameters["proxy"]; p != "" {
		return p
	}
	if strings.HasPrefix(event.Path, servePrefix) {
		return strings.TrimPrefix(event.Path, servePrefix)
	}
	return ""
}

type filePart struct {
	name        string
	contentType string
	body        string
}

// extractFilePart pulls the "file" field out of the multipart body. Proxy
// events deliver binary bodies base64-encoded.
func extractFilePart(event events.APIGatewayProxyRequest) (filePart, error) {
	mediaType, params, err := mime.ParseMediaType(headerValue(event.Headers, "Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return filePart{}, errors.New("handler: body is not multipart")
	}
	boundary := params["boundary"]
	if boundary == "" {
		return filePart{}, errors.New("handler: multipart boundary missing")
	}

	body := event.Body
	if event.IsBase64Encoded {
		decoded, decErr := base64.StdEncoding.DecodeString(body)
		if decErr != nil {
			return filePart{}, decErr
		}
		body = string(decoded)
	}

	mr := multipart.NewReader(strings.NewReader(body), boundary)
	for {
		part, nextErr := mr.NextPart()
		if nextErr == io.EOF {
			break
		}
		if nextErr != nil {
			return filePart{}, nextErr
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}
		data, readErr := io.ReadAll(io.LimitReader(part, maxUploadBytes))
		_ = part.Close()
		if readErr != nil {
			return filePart{}, readErr
		}
		name := part.FileName()
		if name == "" {
			name = "upload"
		}
		return filePart{
			name:        name,
			contentType: part.Header.Get("Content-Type"),
			body:        string(data),
		}, nil
	}
	return filePart{}, errors.New("handler: file field missing")
}

func sanitizeFileName(name string) string {
	return unsafeKeyChars.ReplaceAllString(name, "_")
}
