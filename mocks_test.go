package authclient_test

import (
	"context"
	"sync"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/mock"
)

// MockNotifier implements authclient.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Success(message string) {
	m.Called(message)
}

func (m *MockNotifier) Error(message string) {
	m.Called(message)
}

func (m *MockNotifier) Dismiss() {
	m.Called()
}

// RecordingNotifier collects notifications without testify expectations, for
// tests that only care about the final outcome.
type RecordingNotifier struct {
	mu        sync.Mutex
	Successes []string
	Errors    []string
	Dismissed int
}

func (n *RecordingNotifier) Success(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Successes = append(n.Successes, message)
}

func (n *RecordingNotifier) Error(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Errors = append(n.Errors, message)
}

func (n *RecordingNotifier) Dismiss() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Dismissed++
}

// MockActivitySink implements authclient.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event authclient.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// RecordingActivitySink collects events in order.
type RecordingActivitySink struct {
	mu     sync.Mutex
	Events []authclient.ActivityEvent
}

func (s *RecordingActivitySink) Record(_ context.Context, event authclient.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, event)
	return nil
}

func (s *RecordingActivitySink) Types() []authclient.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()

	types := make([]authclient.ActivityEventType, 0, len(s.Events))
	for _, event := range s.Events {
		types = append(types, event.EventType)
	}
	return types
}

// FailingStorage wraps a Storage and fails writes, to exercise the
// fail-safe paths.
type FailingStorage struct {
	authclient.Storage
	SetErr    error
	DeleteErr error
}

func (s *FailingStorage) Set(key, value string) error {
	if s.SetErr != nil {
		return s.SetErr
	}
	return s.Storage.Set(key, value)
}

func (s *FailingStorage) Delete(key string) error {
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	return s.Storage.Delete(key)
}

// MockTokenSource implements authclient.SessionTokenSource for transport
// tests.
type MockTokenSource struct {
	mock.Mock
}

func (m *MockTokenSource) AccessToken(ctx context.Context) (string, bool) {
	args := m.Called(ctx)
	return args.String(0), args.Bool(1)
}

func (m *MockTokenSource) Refresh(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockTokenSource) ForceLogout(ctx context.Context) {
	m.Called(ctx)
}

// testConfig builds a ClientConfig pointed at a test server.
func testConfig(baseURL string) *authclient.ClientConfig {
	return &authclient.ClientConfig{
		BaseURL: baseURL,
		Routes: authclient.Routes{
			Login:                "/auth/login/",
			Logout:               "/auth/logout/",
			Refresh:              "/auth/token/refresh/",
			Signup:               "/auth/registration/",
			ResendConfirmation:   "/auth/registration/resend-email/",
			ConfirmEmail:         "/auth/registration/verify-email/",
			PasswordReset:        "/auth/password/reset/",
			PasswordResetConfirm: "/auth/password/reset/confirm/",
			PasswordChange:       "/auth/password/change/",
		},
		RefreshThreshold: 10 * time.Minute,
		HTTPTimeout:      5 * time.Second,
	}
}
