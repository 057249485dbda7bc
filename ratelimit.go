package authclient

import (
	"strings"
	"sync"
	"time"
)

// LimitKeyKind tags the entity type behind a rate-limit identifier so email
// addresses, verification codes, and resend tokens never collide in one map.
type LimitKeyKind string

const (
	LimitKindEmail  LimitKeyKind = "email"
	LimitKindVerify LimitKeyKind = "verify"
	LimitKindResend LimitKeyKind = "resend"
	LimitKindRoute  LimitKeyKind = "route"
)

// LimitKey identifies one rate-limited subject. Keys compare structurally.
type LimitKey struct {
	Kind  LimitKeyKind
	Value string
}

// EmailKey builds a LimitKey for a login identifier, normalized so the same
// mailbox spelled differently shares one attempt record.
func EmailKey(email string) LimitKey {
	return LimitKey{Kind: LimitKindEmail, Value: strings.TrimSpace(strings.ToLower(email))}
}

// VerifyKey builds a LimitKey for an email-confirmation code.
func VerifyKey(code string) LimitKey {
	return LimitKey{Kind: LimitKindVerify, Value: code}
}

// ResendKey builds a LimitKey for a resend-confirmation token.
func ResendKey(token string) LimitKey {
	return LimitKey{Kind: LimitKindResend, Value: token}
}

// RouteKey builds a LimitKey for a request path, used by the transport's
// general request limiter.
func RouteKey(path string) LimitKey {
	return LimitKey{Kind: LimitKindRoute, Value: path}
}

type attemptRecord struct {
	count        int
	firstAttempt time.Time
	blockedUntil time.Time
}

// LimitResult is the outcome of a CheckLimit call.
type LimitResult struct {
	Allowed bool
	// RetryAfterSeconds is set when denied: whole seconds (rounded up) until
	// the block lifts.
	RetryAfterSeconds int
	// AttemptsRemaining is set when allowed: attempts left before a block.
	AttemptsRemaining int
}

// RateLimiter is a per-identifier sliding-window attempt counter with
// lockout. The window is measured from the first recorded attempt, not a
// fixed calendar interval. It never fails: unknown identifiers are allowed.
type RateLimiter struct {
	mu            sync.Mutex
	attempts      map[LimitKey]*attemptRecord
	maxAttempts   int
	window        time.Duration
	blockDuration time.Duration
	now           func() time.Time
}

// RateLimiterOption customizes a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterClock injects a custom clock (useful for tests).
func WithRateLimiterClock(clock func() time.Time) RateLimiterOption {
	return func(rl *RateLimiter) {
		if clock != nil {
			rl.now = clock
		}
	}
}

// NewRateLimiter creates a limiter allowing maxAttempts per window, locking
// the identifier out for blockDuration once the threshold is reached.
func NewRateLimiter(maxAttempts int, window, blockDuration time.Duration, opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		attempts:      make(map[LimitKey]*attemptRecord),
		maxAttempts:   maxAttempts,
		window:        window,
		blockDuration: blockDuration,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(rl)
	}

	return rl
}

// NewAuthRateLimiter creates the limiter used for login, verification and
// resend attempts: 5 attempts per 15 minutes, 15 minute lockout.
func NewAuthRateLimiter(opts ...RateLimiterOption) *RateLimiter {
	return NewRateLimiter(5, 15*time.Minute, 15*time.Minute, opts...)
}

// NewAPIRateLimiter creates the general request limiter: 100 requests per
// minute, 1 minute lockout.
func NewAPIRateLimiter(opts ...RateLimiterOption) *RateLimiter {
	return NewRateLimiter(100, time.Minute, time.Minute, opts...)
}

// CheckLimit reports whether key may attempt another operation. When the
// attempt count has reached the threshold, the check itself latches the
// block, so repeated checks without new recorded attempts still enforce the
// lockout.
func (rl *RateLimiter) CheckLimit(key LimitKey) LimitResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	record, ok := rl.attempts[key]
	if !ok {
		return LimitResult{Allowed: true, AttemptsRemaining: rl.maxAttempts - 1}
	}

	if record.blockedUntil.After(now) {
		return LimitResult{RetryAfterSeconds: ceilSeconds(record.blockedUntil.Sub(now))}
	}

	if now.Sub(record.firstAttempt) >= rl.window {
		delete(rl.attempts, key)
		return LimitResult{Allowed: true, AttemptsRemaining: rl.maxAttempts - 1}
	}

	if record.count >= rl.maxAttempts {
		record.blockedUntil = now.Add(rl.blockDuration)
		return LimitResult{RetryAfterSeconds: ceilSeconds(rl.blockDuration)}
	}

	return LimitResult{Allowed: true, AttemptsRemaining: rl.maxAttempts - record.count - 1}
}

// RecordAttempt registers a (typically failed) attempt for key. A record
// whose window has elapsed is replaced rather than incremented.
func (rl *RateLimiter) RecordAttempt(key LimitKey) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	record, ok := rl.attempts[key]
	if !ok || now.Sub(record.firstAttempt) >= rl.window {
		rl.attempts[key] = &attemptRecord{count: 1, firstAttempt: now}
		return
	}

	record.count++
}

// Reset forgets all attempt history for key. Used after a successful attempt.
func (rl *RateLimiter) Reset(key LimitKey) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	delete(rl.attempts, key)
}

// BackoffDelay suggests an exponential wait before the next attempt, capped
// at 30 seconds. Purely advisory for UI hinting; CheckLimit does not use it.
func BackoffDelay(attempts int) time.Duration {
	if attempts < 1 {
		return 0
	}
	if attempts > 6 {
		return 30 * time.Second
	}

	delay := time.Second << (attempts - 1)
	if delay > 30*time.Second {
		return 30 * time.Second
	}

	return delay
}

func ceilSeconds(d time.Duration) int {
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}
