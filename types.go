package authclient

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Storage is the persistent key-value medium backing TokenStore. Values
// survive process restarts for durable implementations; implementations must
// be safe for use from multiple goroutines.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}

// Notifier receives transient user-facing notifications (toast-style). The
// session manager dismisses any visible notification at the start of each
// operation and shows a new one depending on outcome. Implementations belong
// to the host application; the default is a no-op.
type Notifier interface {
	Success(message string)
	Error(message string)
	Dismiss()
}

// SessionTokenSource is what the HTTP transport needs from the session
// manager: a usable access token, a single refresh attempt, and forced
// logout. SessionManager implements it.
type SessionTokenSource interface {
	AccessToken(ctx context.Context) (string, bool)
	Refresh(ctx context.Context) (string, error)
	ForceLogout(ctx context.Context)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHC "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHC "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHC "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHC "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

type noopNotifier struct{}

func (noopNotifier) Success(string) {}
func (noopNotifier) Error(string)   {}
func (noopNotifier) Dismiss()       {}

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
