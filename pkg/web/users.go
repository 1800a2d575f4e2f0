package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"katydid-account-register/pkg/auth"
	"katydid-account-register/pkg/form"
	"katydid-account-register/pkg/session"
)

// listUsers GET /users，注册成功后的导航目标
func (s *Server) listUsers(c *gin.Context) {
	state, err := s.loadSession(c)
	if err != nil {
		s.sessionError(c, err)
		return
	}
	ctx := c.Request.Context()

	view := usersView{
		Title:         "Usuários",
		Notifications: state.PopFlash(),
		NewPath:       PathNewUser,
	}
	s.saveSession(c, state)

	tokens := auth.FirstOf{session.TokenFromState{State: state}, s.opts.Tokens}
	token, err := tokens.Token(ctx)
	if err == nil {
		view.Users, err = s.opts.Users.ListUsers(ctx, token)
	}
	if err != nil {
		s.logger.Warn("list users", zap.Error(err))
		view.Notifications = append(view.Notifications, form.Notification{
			Message:  MessageListFailed,
			Severity: form.SeverityError,
		})
	}

	c.HTML(http.StatusOK, "users.tmpl", view)
}
