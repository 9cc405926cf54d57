// Package auth issues and checks the admin cookie token.
//
// The token is an opaque marker (base64 of "admin:" plus an issue timestamp),
// not a signed credential: presence and prefix match is the entire trust
// check. The scheme is kept as-is from the original deployment; see DESIGN.md.
package auth

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// CookieName is the credential cookie set on login.
	CookieName = "auth_token"

	tokenPrefix  = "admin:"
	cookieMaxAge = 86400
)

// IssueToken mints the opaque admin token for the given issue time.
func IssueToken(now time.Time) string {
	return base64.StdEncoding.EncodeToString([]byte(tokenPrefix + strconv.FormatInt(now.UnixMilli(), 10)))
}

// CookieValue formats the Set-Cookie header value for a freshly issued token.
func CookieValue(token string) string {
	return fmt.Sprintf("%s=%s; Path=/; HttpOnly; SameSite=Strict; Max-Age=%d", CookieName, token, cookieMaxAge)
}

// IsAuthenticated reports whether the Cookie header carries a decodable
// admin token.
func IsAuthenticated(cookieHeader string) bool {
	token, ok := cookieToken(cookieHeader)
	if !ok {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	return strings.HasPrefix(string(decoded), tokenPrefix)
}

// cookieToken extracts the auth cookie value from a raw Cookie header.
func cookieToken(cookieHeader string) (string, bool) {
	header := http.Header{}
	header.Add("Cookie", cookieHeader)
	req := http.Request{Header: header}
	c, err := req.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
