package auth

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIssueToken_Shape(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	token := IssueToken(now)

	decoded, err := base64.StdEncoding.DecodeString(token)
	require.NoError(t, err)
	require.Equal(t, "admin:1700000000000", string(decoded))
}

func TestIsAuthenticated_ValidCookie(t *testing.T) {
	token := IssueToken(time.Now())
	require.True(t, IsAuthenticated("auth_token="+token))
	require.True(t, IsAuthenticated("theme=dark; auth_token="+token+"; lang=ja"))
}

func TestIsAuthenticated_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		cookie string
	}{
		{"empty header", ""},
		{"no auth cookie", "theme=dark"},
		{"not base64", "auth_token=%%%%"},
		{"wrong prefix", "auth_token=" + base64.StdEncoding.EncodeToString([]byte("user:123"))},
		{"empty value", "auth_token="},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.False(t, IsAuthenticated(tc.cookie))
		})
	}
}

func TestCookieValue(t *testing.T) {
	v := CookieValue("abc")
	require.Equal(t, "auth_token=abc; Path=/; HttpOnly; SameSite=Strict; Max-Age=86400", v)
}
