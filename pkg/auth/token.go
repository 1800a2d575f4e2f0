package auth

import (
	"context"
	"errors"
)

// ErrNoToken 没有可用的令牌
var ErrNoToken = errors.New("auth: no token available")

// StaticToken 固定令牌，空字符串视为没有令牌
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", ErrNoToken
	}
	return string(t), nil
}

// IssuerTokenProvider 每次调用为固定 subject 签发新令牌（服务账号）
type IssuerTokenProvider struct {
	Signer  *Signer
	Subject string
}

func (p IssuerTokenProvider) Token(context.Context) (string, error) {
	if p.Signer == nil {
		return "", ErrNoToken
	}
	return p.Signer.Issue(p.Subject)
}

// TokenSource 任何能提供令牌的来源，与 form.TokenProvider 方法集一致
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// FirstOf 依次尝试多个来源，返回第一个可用的令牌
type FirstOf []TokenSource

func (f FirstOf) Token(ctx context.Context) (string, error) {
	var errs []error
	for _, src := range f {
		if src == nil {
			continue
		}
		token, err := src.Token(ctx)
		if err == nil && token != "" {
			return token, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return "", ErrNoToken
	}
	return "", errors.Join(append([]error{ErrNoToken}, errs...)...)
}
