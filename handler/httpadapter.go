package handler

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
)

// LambdaFunc is the proxy-event signature shared by every handler here.
type LambdaFunc func(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// HTTPAdapter exposes a Lambda handler as an http.Handler so the same code
// can run behind a plain router during local development.
func HTTPAdapter(fn LambdaFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, err := toEvent(r)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		resp, err := fn(r.Context(), event)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(resp.StatusCode)

		body := []byte(resp.Body)
		if resp.IsBase64Encoded {
			decoded, decErr := base64.StdEncoding.DecodeString(resp.Body)
			if decErr != nil {
				return
			}
			body = decoded
		}
		_, _ = w.Write(body)
	}
}

func toEvent(r *http.Request) (events.APIGatewayProxyRequest, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return events.APIGatewayProxyRequest{}, err
	}

	headers := make(map[string]string, len(r.Header))
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}

	query := make(map[string]string)
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			query[k] = vs[0]
		}
	}

	event := events.APIGatewayProxyRequest{
		HTTPMethod:            r.Method,
		Path:                  r.URL.Path,
		Headers:               headers,
		QueryStringParameters: query,
	}
	event.RequestContext.Identity.SourceIP = sourceIP(r.RemoteAddr)

	// Binary bodies take the base64 path, matching how the API gateway
	// delivers them.
	if utf8.Valid(raw) {
		event.Body = string(raw)
	} else {
		event.Body = base64.StdEncoding.EncodeToString(raw)
		event.IsBase64Encoded = true
	}
	return event, nil
}

func sourceIP(remoteAddr string) string {
	if i := strings.LastIndex(remoteAddr, ":"); i > 0 {
		return strings.Trim(remoteAddr[:i], "[]")
	}
	return remoteAddr
}
