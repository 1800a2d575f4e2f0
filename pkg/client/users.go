// Package client 用户服务的 HTTP 客户端
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBodySize 读取错误响应体的上限
const maxErrorBodySize = 4 << 10

// ErrMalformedResponse 响应体无法解析
var ErrMalformedResponse = errors.New("client: malformed response")

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User 用户服务返回的用户资源
type User struct {
	ID    int64  `json:"id,string"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// APIError 用户服务返回的非 2xx 响应
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("users service: status %d", e.Status)
	}
	return fmt.Sprintf("users service: status %d: %s", e.Status, e.Message)
}

// Client 用户服务客户端
// 不做重试，也不设置超时，调用方通过 ctx 控制生命周期。
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option 客户端可选配置
type Option func(*Client)

// WithHTTPClient 替换底层 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New 创建客户端，baseURL 形如 http://127.0.0.1:8080/api
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateUser 发起一次 POST /users 创建用户
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest, token string) (*User, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("client: encode request: %w", err)
	}

	var user User
	if err := c.do(ctx, http.MethodPost, "/users", token, bytes.NewReader(body), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers 获取用户列表 GET /users
func (c *Client) ListUsers(ctx context.Context, token string) ([]User, error) {
	var users []User
	if err := c.do(ctx, http.MethodGet, "/users", token, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		// 错误体格式不固定，解析失败时保留状态码即可
		_ = json.Unmarshal(raw, apiErr)
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
