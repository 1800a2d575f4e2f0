package form

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"katydid-account-register/pkg/client"
)

type createCall struct {
	req   client.CreateUserRequest
	token string
}

// fakeRegistrar 记录调用，可选阻塞直到 release 关闭
type fakeRegistrar struct {
	mu      sync.Mutex
	calls   []createCall
	err     error
	entered chan struct{}
	release chan struct{}
}

func (f *fakeRegistrar) CreateUser(ctx context.Context, req client.CreateUserRequest, token string) (*client.User, error) {
	f.mu.Lock()
	f.calls = append(f.calls, createCall{req: req, token: token})
	f.mu.Unlock()

	if f.entered != nil {
		close(f.entered)
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return &client.User{ID: 1, Name: req.Name, Email: req.Email}, nil
}

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) Token(context.Context) (string, error) {
	return s.token, s.err
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

type recordingNavigator struct {
	paths []string
}

func (r *recordingNavigator) Navigate(_ context.Context, path string) {
	r.paths = append(r.paths, path)
}

type failingState struct{}

func (failingState) Begin(context.Context) (bool, error) { return false, errors.New("lock store down") }
func (failingState) End(context.Context)                 {}
func (failingState) IsLoading(context.Context) bool      { return false }

func TestSubmitter_Success(t *testing.T) {
	svc := &fakeRegistrar{}
	notifier := &recordingNotifier{}
	nav := &recordingNavigator{}
	s := NewSubmitter(svc, staticTokens{token: "session-token"}, notifier, nav, nil)

	out := s.Register(context.Background(), "John", "johndoe@doe.com", "123456")

	assert.Equal(t, OutcomeCreated, out)
	require.Len(t, svc.calls, 1)
	assert.Equal(t, createCall{
		req:   client.CreateUserRequest{Name: "John", Email: "johndoe@doe.com", Password: "123456"},
		token: "session-token",
	}, svc.calls[0])
	assert.Equal(t, []string{"/users"}, nav.paths)
	assert.Empty(t, notifier.sent)
	assert.False(t, s.Loading(context.Background()))
}

func TestSubmitter_Failures(t *testing.T) {
	tests := []struct {
		name      string
		svcErr    error
		tokens    TokenProvider
		state     SubmissionState
		wantCalls int
	}{
		{name: "服务拒绝", svcErr: &client.APIError{Status: 409}, tokens: staticTokens{token: "t"}, wantCalls: 1},
		{name: "网络错误", svcErr: errors.New("connection refused"), tokens: staticTokens{token: "t"}, wantCalls: 1},
		{name: "令牌不可用", tokens: staticTokens{err: errors.New("no session")}, wantCalls: 0},
		{name: "空令牌", tokens: staticTokens{}, wantCalls: 0},
		{name: "加载标记存储故障", tokens: staticTokens{token: "t"}, state: failingState{}, wantCalls: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeRegistrar{err: tt.svcErr}
			notifier := &recordingNotifier{}
			nav := &recordingNavigator{}
			s := NewSubmitter(svc, tt.tokens, notifier, nav, tt.state)

			out := s.Register(context.Background(), "John", "johndoe@doe.com", "123456")

			assert.Equal(t, OutcomeFailed, out)
			assert.Len(t, svc.calls, tt.wantCalls)
			assert.Equal(t, []Notification{{Message: "Não foi possível criar o usuário.", Severity: SeverityError}}, notifier.sent)
			assert.Empty(t, nav.paths)
			assert.False(t, s.Loading(context.Background()))
		})
	}
}

func TestSubmitter_BusyWhileInFlight(t *testing.T) {
	svc := &fakeRegistrar{entered: make(chan struct{}), release: make(chan struct{})}
	notifier := &recordingNotifier{}
	nav := &recordingNavigator{}
	s := NewSubmitter(svc, staticTokens{token: "t"}, notifier, nav, &LocalState{})
	ctx := context.Background()

	done := make(chan Outcome)
	go func() {
		done <- s.Register(ctx, "John", "johndoe@doe.com", "123456")
	}()

	<-svc.entered
	assert.True(t, s.Loading(ctx))

	// 第二次提交在加载中不产生任何效果
	assert.Equal(t, OutcomeBusy, s.Register(ctx, "John", "johndoe@doe.com", "123456"))

	close(svc.release)
	assert.Equal(t, OutcomeCreated, <-done)

	assert.Len(t, svc.calls, 1)
	assert.Equal(t, []string{"/users"}, nav.paths)
	assert.Empty(t, notifier.sent)
	assert.False(t, s.Loading(ctx))
}

func TestSubmitter_SuccessPathOption(t *testing.T) {
	nav := &recordingNavigator{}
	s := NewSubmitter(&fakeRegistrar{}, staticTokens{token: "t"}, &recordingNotifier{}, nav, nil,
		WithSuccessPath("/admin/users"), WithLogger(nil))

	assert.Equal(t, OutcomeCreated, s.Register(context.Background(), "John", "johndoe@doe.com", "123456"))
	assert.Equal(t, []string{"/admin/users"}, nav.paths)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "created", OutcomeCreated.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
	assert.Equal(t, "busy", OutcomeBusy.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
