package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"nhkeasy/pkg/errors"
)

// Claims holds the decoded payload of the access token. Only the claims
// needed for expiry checks and diagnostics are surfaced.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Credential is the time-limited access token minted by the consent flow.
// It lives for a single run: acquired once, handed to the session client,
// never persisted.
type Credential struct {
	// Token is the raw three-segment bearer string, usable as a cookie
	// value even when its claims cannot be decoded.
	Token string

	// Claims is nil when the payload segment could not be decoded.
	Claims *Claims

	// AcquiredAt is the time the consent flow returned the token.
	AcquiredAt time.Time
}

// Expired reports whether the credential's expiry has passed. Credentials
// without decodable claims are never reported as expired; the server is
// the authority for those.
func (c *Credential) Expired(now time.Time) bool {
	if c.Claims == nil || c.Claims.ExpiresAt.IsZero() {
		return false
	}
	return c.Claims.ExpiresAt.Before(now)
}

// NewCredential builds a credential from a raw token. A token whose claims
// cannot be decoded is accepted with nil Claims (the server may still honor
// it); a token that decodes to an already-passed expiry is rejected, since
// it can never satisfy a request.
func NewCredential(token string, now time.Time) (*Credential, error) {
	credential := &Credential{
		Token:      token,
		AcquiredAt: now,
	}

	claims, err := DecodeClaims(token)
	if err != nil {
		return credential, nil
	}
	credential.Claims = claims

	if credential.Expired(now) {
		return nil, errors.NewAuthError(
			"acquired token already expired at %s", claims.ExpiresAt.Format(time.RFC3339))
	}

	return credential, nil
}

// DecodeClaims decodes the payload segment of a signed token without
// verifying the signature. The signature belongs to the issuer; this side
// only needs the expiry and subject for validation and logging.
func DecodeClaims(token string) (*Claims, error) {
	parser := jwt.NewParser()

	registered := &jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(token, registered); err != nil {
		return nil, errors.NewTokenDecodeError("failed to decode token claims: %v", err)
	}

	claims := &Claims{Subject: registered.Subject}
	if registered.IssuedAt != nil {
		claims.IssuedAt = registered.IssuedAt.Time
	}
	if registered.ExpiresAt != nil {
		claims.ExpiresAt = registered.ExpiresAt.Time
	}

	return claims, nil
}
