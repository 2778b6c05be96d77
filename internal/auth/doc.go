// Package auth decides whether a connecting client may complete its handshake.
//
// The event loop asks an Authorizer about the token found in the request's
// query string. Two authorizers exist:
//
//   - AllowAll admits everyone and resolves no identity (auth mode "none")
//   - TokenAuthorizer admits a client only if a TokenStore maps its token to a
//     non-expired Identity (auth mode "token")
//
// # Token Stores
//
//   - StaticStore: tokens listed in the configuration file
//   - RedisStore: GET <prefix><token>, value is a user id or a JSON identity
//   - PostgresStore: SELECT id FROM users WHERE api_token = $1
//   - JWTStore: HMAC-signed JWTs, "sub" is the user id, "exp" the expiry
//
// Remote stores are wrapped in a BreakerStore so that an unreachable backend
// fails fast instead of stalling every handshake for the lookup timeout.
//
// # Errors
//
// Authorize never panics and never returns a nil error for a rejected client.
// The error tells the caller why:
//
//	ErrNoToken       token absent or empty
//	ErrUnknownToken  store has no entry for the token
//	ErrExpired       entry found but past its expiry
//	ErrLookupFailed  store could not be consulted (wraps the cause)
package auth
