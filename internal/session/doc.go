// Package session owns the credential lifecycle for the telephony platform.
//
// # Manager
//
// [Manager] acquires tokens with the OAuth2 password grant, persists them through a [Store] on every change,
// and refreshes them with the refresh_token grant. Concurrent refreshes share one exchange.
// The client credentials travel as HTTP basic auth on the identity endpoint.
//
// The identity endpoint is not consistent about field casing, so the manager's HTTP client rewrites
// camelCase token responses (accessToken, expiresIn, ...) to the snake_case keys [oauth2] expects.
//
// # Claims
//
// [DecodeClaims] reads user_id, acc_id and user_name from the access token payload WITHOUT verifying its signature.
// The result is a display and bootstrap fallback (account info when the account endpoints are unreachable).
// It must never feed an authorization decision.
//
// # Errors
//
// Failures are reported as [*AuthError], whose Kind matches a sentinel in the shared package:
//   - [shared.ErrInvalidCredentials] : identity endpoint answered 4xx to a password grant
//   - [shared.ErrNetwork] : transport failure or 5xx during a password grant
//   - [shared.ErrNoRefreshToken] : refresh requested without a stored refresh token
//   - [shared.ErrRefreshFailed] : refresh exchange failed
//   - [shared.ErrNoValidToken] : no usable access token and none could be obtained
package session
