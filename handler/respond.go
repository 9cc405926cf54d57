// Package handler adapts Lambda proxy events to the application services and
// maps service errors onto the public wire contract.
package handler

import (
	"encoding/json"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
)

const (
	headerCorrelationID = "X-Correlation-Id"
	contentTypeJSON     = "application/json"
)

// corsHeaders is attached to every browser-facing JSON response.
func corsHeaders() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "POST, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type",
		"Content-Type":                 contentTypeJSON,
	}
}

func preflightResponse(corr string) events.APIGatewayProxyResponse {
	h := map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "POST, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type",
	}
	h[headerCorrelationID] = corr
	return events.APIGatewayProxyResponse{StatusCode: 204, Headers: h}
}

func jsonResponse(status int, corr string, v any) events.APIGatewayProxyResponse {
	h := corsHeaders()
	h[headerCorrelationID] = corr

	body, err := json.Marshal(v)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: 500,
			Headers:    h,
			Body:       `{"error":"encoding failure"}`,
		}
	}
	return events.APIGatewayProxyResponse{StatusCode: status, Headers: h, Body: string(body)}
}

// headerValue does a case-insensitive lookup; proxy events do not normalize
// header casing.
func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// correlationID reuses the caller-supplied id so one request can be traced
// across services; otherwise a fresh one is minted.
func correlationID(headers map[string]string) string {
	if v := headerValue(headers, headerCorrelationID); v != "" {
		return v
	}
	return uuid.NewString()
}

// clientIP identifies the caller for throttling. The API gateway source
// address is authoritative; X-Forwarded-For is a fallback for local serving.
func clientIP(event events.APIGatewayProxyRequest) string {
	if ip := strings.TrimSpace(event.RequestContext.Identity.SourceIP); ip != "" {
		return ip
	}
	if fwd := headerValue(event.Headers, "X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return "unknown"
}
