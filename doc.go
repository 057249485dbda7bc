// Package authclient manages client-side authentication sessions against a
// pre-existing backend auth API: token lifecycle (storage, expiry detection,
// silent refresh), login/registration/email-confirmation flow orchestration,
// and per-identifier rate limiting for sensitive operations.
//
// Session manager:
//   - SessionManager is the authoritative state machine for the auth
//     lifecycle. It owns the logged-in and loading flags plus the pending
//     email-confirmation token, exposes a State snapshot for non-UI callers
//     (notably the HTTP transport), and broadcasts changes to subscribers.
//
// Transport:
//   - Transport is an http.RoundTripper that injects bearer tokens on
//     outbound requests (skipping public routes) and recovers from token
//     expiry with a single refresh-and-retry per failing call. The bounded
//     retry keeps an invalid refresh token from looping forever.
//
// Token expiry checks decode JWT claims WITHOUT verifying signatures. That is
// a UX optimization to avoid pointless round trips, not a security control:
// the server remains the only authority on token validity. Do not treat any
// client-side expiry check in this package as a security boundary.
package authclient
