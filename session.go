package authclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// AuthResult is the closed outcome set of a login attempt. Exactly one tag
// is returned per call.
type AuthResult string

const (
	AuthResultSuccess        AuthResult = "success"
	AuthResultConfirmEmail   AuthResult = "confirm_email"
	AuthResultGo2FA          AuthResult = "go2fa"
	AuthResultOTPFail        AuthResult = "otp_fail"
	AuthResultWrongData      AuthResult = "wrong_data"
	AuthResultResetPassword  AuthResult = "reset_psw"
	AuthResultAccountBlocked AuthResult = "account_block"
	AuthResultInvalid        AuthResult = "invalid"
	AuthResultError          AuthResult = "error"
)

// ResendStatus is the outcome of a resend-confirmation request.
type ResendStatus string

const (
	ResendSent       ResendStatus = "sent"
	ResendInProgress ResendStatus = "in_progress"
	ResendError      ResendStatus = "error"
)

// Resend cooldowns persisted across restarts. The backend's "already in
// progress" answer earns the longer wait.
const (
	defaultResendCooldown     = time.Minute
	defaultResendBusyCooldown = 5 * time.Minute
)

// SessionState is an immutable snapshot of the session flags.
type SessionState struct {
	// IsLogged is derived at startup from refresh-token validity, then
	// maintained by the operations below.
	IsLogged bool
	// IsLoading is true while a session-mutating operation is in flight.
	// UI code is expected to disable triggers while it is set.
	IsLoading bool
	// ConfirmEmailToken is set when a login attempt reveals an unconfirmed
	// email; it is only valid until exchanged or replaced by a new attempt.
	ConfirmEmailToken string
}

// SessionManager is the authoritative state machine for the user's
// authentication lifecycle. It is designed to run as a process-wide service:
// UI code subscribes to state snapshots, while non-UI collaborators (the
// HTTP transport) read State and call the SessionTokenSource methods.
//
// Public methods never return raw transport errors or panic; failures
// resolve to typed results and user-facing notifications.
type SessionManager struct {
	mu           sync.Mutex
	state        SessionState
	subscribers  map[int]func(SessionState)
	nextSubID    int
	loadingDepth int

	// refreshMu serializes token refreshes so concurrent callers share one
	// in-flight refresh instead of racing the refresh endpoint.
	refreshMu sync.Mutex

	store    *TokenStore
	api      *APIClient
	limiter  *RateLimiter
	notifier Notifier
	activity ActivitySink
	logger   Logger
	now      func() time.Time

	threshold          time.Duration
	resendCooldown     time.Duration
	resendBusyCooldown time.Duration
}

var _ SessionTokenSource = (*SessionManager)(nil)

// SessionOption customizes a SessionManager.
type SessionOption func(*SessionManager)

// WithSessionLogger overrides the logger.
func WithSessionLogger(logger Logger) SessionOption {
	return func(m *SessionManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithNotifier installs the user-facing notification collaborator.
func WithNotifier(n Notifier) SessionOption {
	return func(m *SessionManager) {
		m.notifier = normalizeNotifier(n)
	}
}

// WithActivitySink configures an ActivitySink for lifecycle events.
func WithActivitySink(sink ActivitySink) SessionOption {
	return func(m *SessionManager) {
		m.activity = normalizeActivitySink(sink)
	}
}

// WithSessionClock injects a custom clock (useful for tests).
func WithSessionClock(clock func() time.Time) SessionOption {
	return func(m *SessionManager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithAuthLimiter replaces the login/verification rate limiter.
func WithAuthLimiter(limiter *RateLimiter) SessionOption {
	return func(m *SessionManager) {
		if limiter != nil {
			m.limiter = limiter
		}
	}
}

// WithAPIClient replaces the backend client wholesale. Mostly useful in
// tests; the default client routes through the intercepting Transport.
func WithAPIClient(api *APIClient) SessionOption {
	return func(m *SessionManager) {
		if api != nil {
			m.api = api
		}
	}
}

// NewSessionManager creates the session service over the given persistence
// backend. The initial logged-in state is derived from the stored refresh
// token's expiry.
func NewSessionManager(cfg Config, storage Storage, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		subscribers:        make(map[int]func(SessionState)),
		notifier:           noopNotifier{},
		activity:           noopActivitySink{},
		logger:             defLogger{},
		now:                time.Now,
		threshold:          cfg.GetRefreshThreshold(),
		resendCooldown:     defaultResendCooldown,
		resendBusyCooldown: defaultResendBusyCooldown,
	}

	if m.threshold <= 0 {
		m.threshold = DefaultRefreshThreshold
	}

	for _, opt := range opts {
		opt(m)
	}

	m.store = NewTokenStore(storage,
		WithTokenStoreLogger(m.logger),
		WithTokenStoreClock(m.now),
	)

	if m.limiter == nil {
		m.limiter = NewAuthRateLimiter(WithRateLimiterClock(m.now))
	}

	if m.api == nil {
		transport := NewTransport(m, cfg,
			WithTransportLimiter(NewAPIRateLimiter(WithRateLimiterClock(m.now))),
			WithTransportLogger(m.logger),
		)
		m.api = NewAPIClient(cfg,
			WithHTTPClient(&http.Client{Transport: transport, Timeout: cfg.GetHTTPTimeout()}),
			WithAPIClientLogger(m.logger),
		)
	}

	m.state.IsLogged = m.store.HasValidRefreshToken()

	return m
}

// Store exposes the token store for host code that needs the cached user
// record. Tokens themselves should be obtained through AccessToken.
func (m *SessionManager) Store() *TokenStore {
	return m.store
}

// State returns a snapshot of the current session flags.
func (m *SessionManager) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers an observer invoked with a state snapshot after every
// change. The returned function unsubscribes it.
func (m *SessionManager) Subscribe(fn func(SessionState)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

func (m *SessionManager) mutate(mutator func(*SessionState)) {
	m.mu.Lock()
	mutator(&m.state)
	snapshot, subs := m.snapshotLocked()
	m.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

func (m *SessionManager) snapshotLocked() (SessionState, []func(SessionState)) {
	subs := make([]func(SessionState), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	return m.state, subs
}

// beginLoading/endLoading maintain a depth count so a nested mutating call
// (a silent refresh inside another operation, the resend nested in LogIn)
// cannot flip the loading flag off while the outer operation is still in
// flight.
func (m *SessionManager) beginLoading() {
	m.mu.Lock()
	m.loadingDepth++
	if m.loadingDepth > 1 {
		m.mu.Unlock()
		return
	}
	m.state.IsLoading = true
	snapshot, subs := m.snapshotLocked()
	m.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

func (m *SessionManager) endLoading() {
	m.mu.Lock()
	if m.loadingDepth > 0 {
		m.loadingDepth--
	}
	if m.loadingDepth > 0 {
		m.mu.Unlock()
		return
	}
	m.state.IsLoading = false
	snapshot, subs := m.snapshotLocked()
	m.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

// LogIn authenticates credentials against the backend and returns exactly
// one AuthResult tag. The rate limiter is consulted before any network I/O;
// a denied identifier never reaches the backend. onRequire2FA is invoked
// when the backend demands a two-factor code; session state is left
// untouched in that case.
func (m *SessionManager) LogIn(ctx context.Context, creds Credentials, onRequire2FA func()) AuthResult {
	m.notifier.Dismiss()

	if err := creds.Validate(); err != nil {
		m.notifier.Error(msgInvalidData)
		return AuthResultError
	}

	key := EmailKey(creds.Email)
	if result := m.limiter.CheckLimit(key); !result.Allowed {
		m.notifier.Error(fmt.Sprintf(msgTooManyAttempts, result.RetryAfterSeconds))
		return AuthResultError
	}

	m.beginLoading()
	defer m.endLoading()

	resp, err := m.api.Login(ctx, creds)
	if err == nil {
		m.limiter.Reset(key)
		m.store.SetTokens(resp.Access, resp.Refresh)
		m.store.SetUser(resp.User)
		m.mutate(func(s *SessionState) {
			s.IsLogged = true
			s.ConfirmEmailToken = ""
		})
		m.notifier.Success(msgLoginWelcome)
		m.recordActivity(ctx, ActivityEventLoginSuccess, creds.Email, nil)
		return AuthResultSuccess
	}

	m.limiter.RecordAttempt(key)
	m.recordActivity(ctx, ActivityEventLoginFailure, creds.Email, map[string]any{
		"error": err.Error(),
	})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		m.notifier.Error(msgLoginFailed)
		return AuthResultError
	}

	// A submitted one-time code makes the code itself the thing that failed.
	if creds.GoogleCode != "" {
		m.notifier.Error(msgInvalidOTP)
		return AuthResultOTPFail
	}

	if token := apiErr.ConfirmToken(); token != "" {
		m.mutate(func(s *SessionState) { s.ConfirmEmailToken = token })
		// Loading stays on until the nested resend settles.
		if m.resendConfirmation(ctx, token) == ResendError {
			return AuthResultError
		}
		return AuthResultConfirmEmail
	}

	switch apiErr.Kind {
	case errTypeTwoFactor:
		if onRequire2FA != nil {
			onRequire2FA()
		}
		return AuthResultGo2FA
	case errTypeWrongData:
		m.notifier.Error(msgWrongCredentials)
		return AuthResultWrongData
	case errTypeResetPassword:
		m.notifier.Error(msgPasswordResetNeeded)
		return AuthResultResetPassword
	case errTypeAccountBlocked:
		m.notifier.Error(msgAccountBlocked)
		return AuthResultAccountBlocked
	case errTypeInvalid:
		m.notifier.Error(msgInvalidData)
		return AuthResultInvalid
	}

	m.notifier.Error(msgLoginFailed)
	return AuthResultError
}

// LogOut ends the session. The server-side call is best effort: local state
// and storage are cleared even when it fails.
func (m *SessionManager) LogOut(ctx context.Context) {
	m.notifier.Dismiss()
	m.beginLoading()
	defer m.endLoading()

	if err := m.api.Logout(ctx); err != nil {
		m.logger.Warn("server logout failed, clearing local session anyway: %v", err)
	}

	m.store.Clear()
	m.mutate(func(s *SessionState) {
		s.IsLogged = false
		s.ConfirmEmailToken = ""
	})
	m.notifier.Success(msgLoggedOut)
	m.recordActivity(ctx, ActivityEventLogout, "", nil)
}

// AccessToken returns a usable access token, refreshing it first when it is
// within the configured threshold of expiry. It is the single choke point
// every other component calls for a token and it never fails loudly: any
// unrecoverable condition forces a logout and reports no token.
func (m *SessionManager) AccessToken(ctx context.Context) (string, bool) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	access, ok := m.store.AccessToken()
	if !ok || access == "" {
		return "", false
	}

	if !IsExpiringSoon(access, m.now(), m.threshold) {
		return access, true
	}

	if refresh, ok := m.store.RefreshToken(); !ok || refresh == "" {
		m.forceLogout(ctx)
		return "", false
	}

	m.beginLoading()
	defer m.endLoading()

	token, err := m.refreshLocked(ctx)
	if err != nil {
		m.forceLogout(ctx)
		return "", false
	}

	return token, true
}

// Refresh performs a single refresh attempt and returns the new access
// token. Callers (the transport's response interceptor) treat an error as a
// forced-logout condition.
func (m *SessionManager) Refresh(ctx context.Context) (string, error) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()
	return m.refreshLocked(ctx)
}

func (m *SessionManager) refreshLocked(ctx context.Context) (string, error) {
	refresh, ok := m.store.RefreshToken()
	if !ok || refresh == "" {
		return "", ErrNoRefreshToken
	}

	pair, err := m.api.Refresh(ctx, refresh)
	if err != nil {
		m.logger.Warn("token refresh rejected: %v", err)
		m.recordActivity(ctx, ActivityEventRefreshFailure, "", map[string]any{
			"error": err.Error(),
		})
		return "", ErrRefreshFailed
	}

	m.store.SetTokens(pair.Access, pair.Refresh)
	m.recordActivity(ctx, ActivityEventRefreshSuccess, "", nil)

	return pair.Access, nil
}

// ForceLogout clears the session locally without a server call. Used when a
// response proves the session is unrecoverable.
func (m *SessionManager) ForceLogout(ctx context.Context) {
	m.forceLogout(ctx)
}

func (m *SessionManager) forceLogout(ctx context.Context) {
	m.store.Clear()
	m.mutate(func(s *SessionState) {
		s.IsLogged = false
		s.ConfirmEmailToken = ""
	})
	m.recordActivity(ctx, ActivityEventForcedLogout, "", nil)
}

// Register creates a new account. It does not log the user in. Mismatched
// passwords and malformed emails are rejected before any network call.
func (m *SessionManager) Register(ctx context.Context, data RegistrationData) bool {
	m.notifier.Dismiss()

	if data.Password1 != data.Password2 {
		m.notifier.Error(msgPasswordMismatch)
		return false
	}

	if err := data.Validate(); err != nil {
		m.notifier.Error(msgInvalidEmail)
		return false
	}

	m.beginLoading()
	defer m.endLoading()

	if err := m.api.Register(ctx, data); err != nil {
		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr) && len(apiErr.Email) > 0:
			m.notifier.Error(msgInvalidEmail)
		case errors.As(err, &apiErr) && len(apiErr.NonFieldErrors) > 0:
			m.notifier.Error(msgBadRegistrationData)
		default:
			m.notifier.Error(msgRegistrationFailed)
		}
		return false
	}

	m.notifier.Success(msgRegistered)
	m.recordActivity(ctx, ActivityEventRegistration, data.Email, nil)

	return true
}

// ResendConfirmationEmail asks the backend to send the confirmation email
// again. Attempts are rate limited per token and throttled by a cooldown
// that survives restarts.
func (m *SessionManager) ResendConfirmationEmail(ctx context.Context, token string) ResendStatus {
	m.notifier.Dismiss()
	m.beginLoading()
	defer m.endLoading()

	return m.resendConfirmation(ctx, token)
}

func (m *SessionManager) resendConfirmation(ctx context.Context, token string) ResendStatus {
	key := ResendKey(token)
	if result := m.limiter.CheckLimit(key); !result.Allowed {
		m.notifier.Error(fmt.Sprintf(msgTooManyAttempts, result.RetryAfterSeconds))
		return ResendError
	}

	if until, ok := m.store.ResendCooldownUntil(); ok && m.now().Before(until) {
		m.notifier.Error(fmt.Sprintf(msgTooManyAttempts, ceilSeconds(until.Sub(m.now()))))
		return ResendError
	}

	resp, err := m.api.ResendConfirmation(ctx, token)
	if err != nil {
		m.limiter.RecordAttempt(key)
		m.notifier.Error(msgResendFailed)
		return ResendError
	}

	if resp.Status {
		// A successful send still counts against the limiter so the next
		// resend cannot follow immediately.
		m.limiter.RecordAttempt(key)
		m.store.SetResendCooldown(m.now().Add(m.resendCooldown))
		m.notifier.Success(msgConfirmationSent)
		return ResendSent
	}

	if resp.Code == codeConfirmationInProgress {
		// Not an attempt: the backend is already working on one. Longer
		// cooldown instead.
		m.store.SetResendCooldown(m.now().Add(m.resendBusyCooldown))
		m.notifier.Success(msgConfirmationBusy)
		return ResendInProgress
	}

	m.limiter.RecordAttempt(key)
	m.notifier.Error(msgResendFailed)

	return ResendError
}

// ConfirmEmail exchanges a confirmation code. When the response includes a
// fresh token pair the session transitions to logged in; otherwise the email
// is confirmed but the user still has to log in.
func (m *SessionManager) ConfirmEmail(ctx context.Context, code string) bool {
	m.notifier.Dismiss()

	key := VerifyKey(code)
	if result := m.limiter.CheckLimit(key); !result.Allowed {
		m.notifier.Error(fmt.Sprintf(msgTooManyAttempts, result.RetryAfterSeconds))
		return false
	}

	m.beginLoading()
	defer m.endLoading()

	resp, err := m.api.ConfirmEmail(ctx, code)
	if err != nil {
		m.limiter.RecordAttempt(key)
		m.notifier.Error(msgConfirmFailed)
		return false
	}

	m.limiter.Reset(key)

	if resp.Access != "" && resp.Refresh != "" {
		m.store.SetTokens(resp.Access, resp.Refresh)
		if resp.User != nil {
			// Absent user records are backfilled later by a profile fetch.
			m.store.SetUser(resp.User)
		}
		m.mutate(func(s *SessionState) {
			s.IsLogged = true
			s.ConfirmEmailToken = ""
		})
	} else {
		m.mutate(func(s *SessionState) { s.ConfirmEmailToken = "" })
	}

	m.notifier.Success(msgEmailConfirmed)
	m.recordActivity(ctx, ActivityEventEmailConfirmation, "", nil)

	return true
}

// RequestPasswordReset asks for a reset link to be emailed. Does not mutate
// the logged-in state.
func (m *SessionManager) RequestPasswordReset(ctx context.Context, email string) bool {
	m.notifier.Dismiss()

	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		m.notifier.Error(msgInvalidEmail)
		return false
	}

	m.beginLoading()
	defer m.endLoading()

	if err := m.api.RequestPasswordReset(ctx, email); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && len(apiErr.Email) > 0 {
			m.notifier.Error(msgInvalidEmail)
		} else {
			m.notifier.Error(msgResetFailed)
		}
		return false
	}

	m.notifier.Success(msgResetEmailSent)

	return true
}

// ResetPassword finalizes a reset started from an emailed link. Does not
// mutate the logged-in state.
func (m *SessionManager) ResetPassword(ctx context.Context, data PasswordResetData) bool {
	m.notifier.Dismiss()

	if data.NewPassword1 != data.NewPassword2 {
		m.notifier.Error(msgPasswordMismatch)
		return false
	}

	m.beginLoading()
	defer m.endLoading()

	if err := m.api.ConfirmPasswordReset(ctx, data); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (len(apiErr.UID) > 0 || len(apiErr.Token) > 0) {
			m.notifier.Error(msgResetLinkInvalid)
		} else {
			m.notifier.Error(msgResetFailed)
		}
		return false
	}

	m.notifier.Success(msgPasswordChanged)

	return true
}

// ChangePassword changes the logged-in user's password. Does not mutate the
// logged-in state.
func (m *SessionManager) ChangePassword(ctx context.Context, data PasswordChangeData) bool {
	m.notifier.Dismiss()

	if data.NewPassword1 != data.NewPassword2 {
		m.notifier.Error(msgPasswordMismatch)
		return false
	}

	m.beginLoading()
	defer m.endLoading()

	if err := m.api.ChangePassword(ctx, data); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code != "" {
			m.notifier.Error(lookupChangePasswordMessage(apiErr.Code))
		} else {
			m.notifier.Error(msgPasswordChangeError)
		}
		return false
	}

	m.notifier.Success(msgPasswordChanged)

	return true
}

func (m *SessionManager) recordActivity(ctx context.Context, eventType ActivityEventType, email string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		Email:      email,
		Metadata:   metadata,
		OccurredAt: m.now(),
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := m.activity.Record(ctx, event); err != nil {
		m.logger.Warn("activity sink record error: %v", err)
	}
}
