package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"katydid-account-register/pkg/validator"
)

// ErrorResponse 错误响应体
type ErrorResponse struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Handler 用户服务的 HTTP 处理器
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler 创建处理器
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register 注册路由，middleware 通常是 auth.RequireBearer
func (h *Handler) Register(rg *gin.RouterGroup, middleware ...gin.HandlerFunc) {
	g := rg.Group("/users", middleware...)
	g.POST("", h.Create)
	g.GET("", h.List)
}

// Create godoc
// @Summary  创建用户
// @Tags     users
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    body body CreateRequest true "用户信息"
// @Success  201 {object} Response
// @Failure  400 {object} ErrorResponse
// @Failure  401 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse
// @Router   /users [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "malformed request body"})
		return
	}

	u, err := h.svc.Create(c.Request.Context(), req)
	var verr *ValidationError
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, u.ToResponse())
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "validation failed",
			Fields:  validator.Messages(verr.Errors),
		})
	case errors.Is(err, ErrEmailTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "email already registered"})
	default:
		h.logger.Error("create user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "internal error"})
	}
}

// List godoc
// @Summary  列出用户
// @Tags     users
// @Produce  json
// @Security BearerAuth
// @Success  200 {array} Response
// @Failure  401 {object} ErrorResponse
// @Router   /users [get]
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "internal error"})
		return
	}

	out := make([]Response, 0, len(list))
	for i := range list {
		out = append(out, list[i].ToResponse())
	}
	c.JSON(http.StatusOK, out)
}
