package form

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"katydid-account-register/pkg/client"
)

// 提交流程中的固定值
const (
	// UsersPath 创建成功后跳转的用户列表路径
	UsersPath = "/users"
	// MessageCreateFailed 创建失败时的通知文案
	MessageCreateFailed = "Não foi possível criar o usuário."
)

// ErrEmptyToken 令牌来源返回了空令牌
var ErrEmptyToken = errors.New("form: empty token")

// Severity 通知级别
type Severity string

const (
	SeverityError Severity = "error"
)

// Notification 发往通知通道的一条消息
type Notification struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Registrar 创建用户的远程服务
type Registrar interface {
	CreateUser(ctx context.Context, req client.CreateUserRequest, token string) (*client.User, error)
}

// TokenProvider 提供调用远程服务所需的认证令牌
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Notifier 通知通道
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Navigator 导航（路由跳转）
type Navigator interface {
	Navigate(ctx context.Context, path string)
}

// SubmissionState 提交中的加载标记
// Begin 将标记从 false 置为 true，已经为 true 时返回 false。
type SubmissionState interface {
	Begin(ctx context.Context) (bool, error)
	End(ctx context.Context)
	IsLoading(ctx context.Context) bool
}

// Outcome 一次 Register 调用的结果
type Outcome int

const (
	// OutcomeCreated 用户已创建并已导航到用户列表
	OutcomeCreated Outcome = iota
	// OutcomeFailed 创建失败，已发送错误通知
	OutcomeFailed
	// OutcomeBusy 已有提交在进行中，本次调用没有任何效果
	OutcomeBusy
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeFailed:
		return "failed"
	case OutcomeBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// LocalState 进程内的 SubmissionState
type LocalState struct {
	loading atomic.Bool
}

func (s *LocalState) Begin(context.Context) (bool, error) {
	return s.loading.CompareAndSwap(false, true), nil
}

func (s *LocalState) End(context.Context) {
	s.loading.Store(false)
}

func (s *LocalState) IsLoading(context.Context) bool {
	return s.loading.Load()
}

// SubmitterOption Submitter 的可选配置
type SubmitterOption func(*Submitter)

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) SubmitterOption {
	return func(s *Submitter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSuccessPath 设置创建成功后的跳转路径
func WithSuccessPath(path string) SubmitterOption {
	return func(s *Submitter) {
		if path != "" {
			s.successPath = path
		}
	}
}

// Submitter 注册提交流程
// 持有加载标记，调用远程服务，并分发成功（导航）或失败（通知）的副作用。
// 所有协作者通过构造函数显式注入。
type Submitter struct {
	service     Registrar
	tokens      TokenProvider
	notifier    Notifier
	navigator   Navigator
	state       SubmissionState
	logger      *zap.Logger
	successPath string
}

// NewSubmitter 创建提交流程；state 为 nil 时使用 LocalState
func NewSubmitter(service Registrar, tokens TokenProvider, notifier Notifier, navigator Navigator, state SubmissionState, opts ...SubmitterOption) *Submitter {
	if state == nil {
		state = &LocalState{}
	}
	s := &Submitter{
		service:     service,
		tokens:      tokens,
		notifier:    notifier,
		navigator:   navigator,
		state:       state,
		logger:      zap.NewNop(),
		successPath: UsersPath,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Loading 是否有提交正在进行，用于渲染进度指示
func (s *Submitter) Loading(ctx context.Context) bool {
	return s.state.IsLoading(ctx)
}

// Register 提交注册
//   - 已在加载中：直接返回 OutcomeBusy，不调用远程服务
//   - 成功：导航到用户列表
//   - 任何失败：发送固定的错误通知，错误只记录日志，不返回给调用方
//
// 无论结果如何，调用结束时加载标记都会被清除。
func (s *Submitter) Register(ctx context.Context, name, email, password string) Outcome {
	started, err := s.state.Begin(ctx)
	if err != nil {
		s.logger.Warn("register: cannot mark submission as loading", zap.Error(err))
		s.fail(ctx)
		return OutcomeFailed
	}
	if !started {
		s.logger.Debug("register: submission already in flight")
		return OutcomeBusy
	}
	defer s.state.End(ctx)

	token, err := s.tokens.Token(ctx)
	if err == nil && token == "" {
		err = ErrEmptyToken
	}
	if err != nil {
		s.logger.Warn("register: token unavailable", zap.Error(err))
		s.fail(ctx)
		return OutcomeFailed
	}

	user, err := s.service.CreateUser(ctx, client.CreateUserRequest{
		Name:     name,
		Email:    email,
		Password: password,
	}, token)
	if err != nil {
		s.logger.Warn("register: create user failed", zap.String("email", email), zap.Error(err))
		s.fail(ctx)
		return OutcomeFailed
	}

	fields := []zap.Field{zap.String("email", email)}
	if user != nil {
		fields = append(fields, zap.Int64("user_id", user.ID))
	}
	s.logger.Info("register: user created", fields...)

	s.navigator.Navigate(ctx, s.successPath)
	return OutcomeCreated
}

func (s *Submitter) fail(ctx context.Context) {
	s.notifier.Notify(ctx, Notification{Message: MessageCreateFailed, Severity: SeverityError})
}
