// Package web 注册页面：表单渲染、失焦验证、提交和用户列表
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"katydid-account-register/pkg/client"
	"katydid-account-register/pkg/form"
	"katydid-account-register/pkg/session"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// 页面路由
const (
	PathNewUser  = "/users/new"
	PathValidate = "/users/new/validate"
	PathState    = "/users/new/state"
	PathUsers    = form.UsersPath
)

// UsersService 页面依赖的用户服务
type UsersService interface {
	form.Registrar
	ListUsers(ctx context.Context, token string) ([]client.User, error)
}

// Options 页面依赖
type Options struct {
	Users    UsersService
	Sessions session.Store
	// Tokens 会话中没有令牌时的后备来源（通常是服务账号）
	Tokens form.TokenProvider
	Logger *zap.Logger

	CookieName string
	CookieTTL  time.Duration
	Secure     bool
	LockTTL    time.Duration
}

// Server 注册页面
type Server struct {
	opts      Options
	templates *template.Template
	logger    *zap.Logger
}

// New 创建页面服务并解析模板
func New(opts Options) (*Server, error) {
	if opts.Users == nil || opts.Sessions == nil {
		return nil, errors.New("web: users service and session store are required")
	}
	if opts.CookieName == "" {
		opts.CookieName = "register_sid"
	}
	if opts.CookieTTL <= 0 {
		opts.CookieTTL = session.DefaultTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tmpl, err := template.New("").ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	return &Server{opts: opts, templates: tmpl, logger: logger}, nil
}

// Register 挂载页面路由并设置 HTML 模板
func (s *Server) Register(r *gin.Engine) {
	r.SetHTMLTemplate(s.templates)

	r.GET(PathUsers, s.listUsers)
	r.GET(PathNewUser, s.showForm)
	r.POST(PathNewUser, s.submit)
	r.POST(PathValidate, s.validateField)
	r.GET(PathState, s.formState)
}

// loadSession 读取 cookie 对应的会话，没有或无效时创建新会话并写 cookie
func (s *Server) loadSession(c *gin.Context) (*session.State, error) {
	id, err := c.Cookie(s.opts.CookieName)
	if err != nil || !session.ValidID(id) {
		id = session.NewID()
	}
	// 每次访问都刷新 cookie 的有效期
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.opts.CookieName, id, int(s.opts.CookieTTL/time.Second), "/", "", s.opts.Secure, true)

	return s.opts.Sessions.Load(c.Request.Context(), id)
}

func (s *Server) saveSession(c *gin.Context, state *session.State) {
	if err := s.opts.Sessions.Save(c.Request.Context(), state); err != nil {
		s.logger.Warn("save session", zap.String("session_id", state.ID), zap.Error(err))
	}
}

func (s *Server) sessionError(c *gin.Context, err error) {
	s.logger.Error("load session", zap.Error(err))
	c.String(http.StatusServiceUnavailable, "session store unavailable")
}
