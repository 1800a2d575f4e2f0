package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_IssueParse(t *testing.T) {
	s, err := NewSigner("secret", "register", time.Hour)
	require.NoError(t, err)

	token, err := s.Issue("web")
	require.NoError(t, err)

	claims, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "web", claims.Subject)
	assert.Equal(t, "register", claims.Issuer)
	require.NotNil(t, claims.ExpiresAt)
}

func TestSigner_Rejects(t *testing.T) {
	s, err := NewSigner("secret", "register", time.Minute)
	require.NoError(t, err)
	other, err := NewSigner("other", "register", time.Minute)
	require.NoError(t, err)
	foreign, err := NewSigner("secret", "someone-else", time.Minute)
	require.NoError(t, err)

	expired, err := NewSigner("secret", "register", time.Minute)
	require.NoError(t, err)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }

	tests := []struct {
		name   string
		issuer *Signer
	}{
		{name: "密钥不同", issuer: other},
		{name: "签发者不同", issuer: foreign},
		{name: "已过期", issuer: expired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := tt.issuer.Issue("web")
			require.NoError(t, err)
			_, err = s.Parse(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err = s.Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewSigner_EmptySecret(t *testing.T) {
	_, err := NewSigner("", "register", 0)
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestTokenProviders(t *testing.T) {
	ctx := context.Background()
	s, err := NewSigner("secret", "", 0)
	require.NoError(t, err)

	tok, err := StaticToken("abc").Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = StaticToken("").Token(ctx)
	assert.ErrorIs(t, err, ErrNoToken)

	issued, err := IssuerTokenProvider{Signer: s, Subject: "web"}.Token(ctx)
	require.NoError(t, err)
	claims, err := s.Parse(issued)
	require.NoError(t, err)
	assert.Equal(t, "web", claims.Subject)

	tok, err = FirstOf{StaticToken(""), nil, StaticToken("fallback")}.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fallback", tok)

	_, err = FirstOf{StaticToken(""), IssuerTokenProvider{}}.Token(ctx)
	assert.True(t, errors.Is(err, ErrNoToken))

	_, err = FirstOf{}.Token(ctx)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken(""))
}

func TestRequireBearer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s, err := NewSigner("secret", "register", time.Hour)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/private", RequireBearer(s), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextKeySubject))
	})

	good, err := s.Issue("web")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
		body   string
	}{
		{name: "有效令牌", header: "Bearer " + good, want: http.StatusOK, body: "web"},
		{name: "缺少令牌", header: "", want: http.StatusUnauthorized},
		{name: "无效令牌", header: "Bearer nope", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}
