package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"katydid-account-register/pkg/auth"
	"katydid-account-register/pkg/form"
	"katydid-account-register/pkg/session"
)

// formValues 表单提交的字段值
type formValues struct {
	Name                 string `form:"name"`
	Email                string `form:"email"`
	Password             string `form:"password"`
	PasswordConfirmation string `form:"passwordConfirmation"`
	// Field 失焦验证时触发的字段
	Field string `form:"field"`
}

func (v formValues) toMap() map[string]string {
	return map[string]string{
		form.FieldName:                 v.Name,
		form.FieldEmail:                v.Email,
		form.FieldPassword:             v.Password,
		form.FieldPasswordConfirmation: v.PasswordConfirmation,
	}
}

// fieldResponse 失焦验证的 JSON 响应
type fieldResponse struct {
	Field     string                     `json:"field"`
	Text      string                     `json:"text"`
	ShowError bool                       `json:"showError"`
	FormValid bool                       `json:"formValid"`
	Errors    map[string]form.FieldError `json:"errors"`
}

// stateResponse 表单状态的 JSON 响应
type stateResponse struct {
	Loading   bool                       `json:"loading"`
	FormValid bool                       `json:"formValid"`
	Errors    map[string]form.FieldError `json:"errors"`
}

// redirectNavigator 记录导航目标，由处理器负责实际跳转
type redirectNavigator struct {
	path string
}

func (n *redirectNavigator) Navigate(_ context.Context, path string) {
	n.path = path
}

func (s *Server) trackerFor(state *session.State) *form.Tracker {
	tr := form.NewRegistrationTracker()
	tr.Restore(state.Tracker)
	return tr
}

// showForm GET /users/new
// 每次打开页面都是新的表单会话：字段值为空，错误状态清零。
func (s *Server) showForm(c *gin.Context) {
	state, err := s.loadSession(c)
	if err != nil {
		s.sessionError(c, err)
		return
	}

	tr := form.NewRegistrationTracker()
	state.Tracker = tr.Snapshot()
	flash := state.PopFlash()
	s.saveSession(c, state)

	loading := session.NewSubmissionLock(s.opts.Sessions, state.ID, s.opts.LockTTL).IsLoading(c.Request.Context())
	c.HTML(http.StatusOK, "register.tmpl", newFormView(tr, loading, flash))
}

// validateField POST /users/new/validate（onBlur）
func (s *Server) validateField(c *gin.Context) {
	var values formValues
	if err := c.ShouldBind(&values); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "malformed form"})
		return
	}

	state, err := s.loadSession(c)
	if err != nil {
		s.sessionError(c, err)
		return
	}

	tr := s.trackerFor(state)
	tr.SetValues(values.toMap())
	fe, err := tr.Validate(values.Field, tr.Value(values.Field))
	if errors.Is(err, form.ErrUnknownField) {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	state.Tracker = tr.Snapshot()
	s.saveSession(c, state)

	c.JSON(http.StatusOK, fieldResponse{
		Field:     values.Field,
		Text:      fe.Text,
		ShowError: fe.ShowError,
		FormValid: tr.IsValid(),
		Errors:    tr.Errors(),
	})
}

// formState GET /users/new/state
func (s *Server) formState(c *gin.Context) {
	state, err := s.loadSession(c)
	if err != nil {
		s.sessionError(c, err)
		return
	}
	tr := s.trackerFor(state)
	c.JSON(http.StatusOK, stateResponse{
		Loading:   session.NewSubmissionLock(s.opts.Sessions, state.ID, s.opts.LockTTL).IsLoading(c.Request.Context()),
		FormValid: tr.IsValid(),
		Errors:    tr.Errors(),
	})
}

// submit POST /users/new（onSubmit）
//   - 服务端重新验证所有字段，无效时 422 重新渲染
//   - 创建成功 303 跳转到用户列表
//   - 创建失败留在表单并展示错误通知
//   - 已有提交进行中 409，不重复调用服务
func (s *Server) submit(c *gin.Context) {
	var values formValues
	if err := c.ShouldBind(&values); err != nil {
		c.String(http.StatusBadRequest, "malformed form")
		return
	}

	state, err := s.loadSession(c)
	if err != nil {
		s.sessionError(c, err)
		return
	}
	ctx := c.Request.Context()

	tr := form.NewRegistrationTracker()
	tr.SetValues(values.toMap())
	if !tr.ValidateAll() {
		state.Tracker = tr.Snapshot()
		s.saveSession(c, state)
		c.HTML(http.StatusUnprocessableEntity, "register.tmpl", newFormView(tr, false, nil))
		return
	}

	lock := session.NewSubmissionLock(s.opts.Sessions, state.ID, s.opts.LockTTL)
	// 服务调用必须在锁过期前结束，否则同一会话可能出现并发提交
	callCtx, cancel := context.WithTimeout(ctx, lock.TTL())
	defer cancel()

	nav := &redirectNavigator{}
	submitter := form.NewSubmitter(
		s.opts.Users,
		auth.FirstOf{session.TokenFromState{State: state}, s.opts.Tokens},
		session.FlashNotifier{State: state},
		nav,
		lock,
		form.WithLogger(s.logger.With(zap.String("session_id", state.ID))),
		form.WithSuccessPath(PathUsers),
	)

	switch submitter.Register(callCtx, values.Name, values.Email, values.Password) {
	case form.OutcomeCreated:
		state.Tracker = form.NewRegistrationTracker().Snapshot()
		s.saveSession(c, state)
		c.Redirect(http.StatusSeeOther, nav.path)
	case form.OutcomeBusy:
		c.HTML(http.StatusConflict, "register.tmpl", newFormView(tr, true, nil))
	default:
		flash := state.PopFlash()
		state.Tracker = tr.Snapshot()
		s.saveSession(c, state)
		c.HTML(http.StatusOK, "register.tmpl", newFormView(tr, false, flash))
	}
}
