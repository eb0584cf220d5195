package auth

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "nhkeasy/pkg/errors"
)

// makeToken builds an unsigned three-segment token with the given payload
// claims. The signature segment is garbage; claims decoding never reads it.
func makeToken(t *testing.T, claims map[string]interface{}) string {
	t.Helper()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload, err := json.Marshal(claims)
	require.NoError(t, err)

	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".c2lnbmF0dXJl"
}

func TestDecodeClaims(t *testing.T) {
	issued := time.Now().Add(-time.Minute).Unix()
	expires := time.Now().Add(time.Hour).Unix()
	token := makeToken(t, map[string]interface{}{
		"sub": "viewer",
		"iat": issued,
		"exp": expires,
	})

	claims, err := DecodeClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "viewer", claims.Subject)
	assert.Equal(t, issued, claims.IssuedAt.Unix())
	assert.Equal(t, expires, claims.ExpiresAt.Unix())
}

func TestDecodeClaimsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"two segments", "aGVhZGVy.cGF5bG9hZA"},
		{"not base64", "???.???.???"},
		{"payload not json", "aGVhZGVy.bm90LWpzb24.c2ln"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeClaims(tt.token)
			require.Error(t, err)

			var typed *pkgerrors.Error
			require.ErrorAs(t, err, &typed)
			assert.Equal(t, pkgerrors.ErrorTypeTokenDecode, typed.Type)
		})
	}
}

func TestNewCredential(t *testing.T) {
	now := time.Now()

	t.Run("valid token", func(t *testing.T) {
		token := makeToken(t, map[string]interface{}{
			"sub": "viewer",
			"exp": now.Add(time.Hour).Unix(),
		})

		cred, err := NewCredential(token, now)
		require.NoError(t, err)
		assert.Equal(t, token, cred.Token)
		require.NotNil(t, cred.Claims)
		assert.False(t, cred.Expired(now))
	})

	t.Run("expired token rejected", func(t *testing.T) {
		token := makeToken(t, map[string]interface{}{
			"exp": now.Add(-time.Hour).Unix(),
		})

		_, err := NewCredential(token, now)
		require.Error(t, err)

		var typed *pkgerrors.Error
		require.ErrorAs(t, err, &typed)
		assert.Equal(t, pkgerrors.ErrorTypeAuth, typed.Type)
	})

	t.Run("undecodable token accepted with nil claims", func(t *testing.T) {
		cred, err := NewCredential("opaque-token", now)
		require.NoError(t, err)
		assert.Equal(t, "opaque-token", cred.Token)
		assert.Nil(t, cred.Claims)
		assert.False(t, cred.Expired(now))
	})

	t.Run("token without expiry accepted", func(t *testing.T) {
		token := makeToken(t, map[string]interface{}{"sub": "viewer"})

		cred, err := NewCredential(token, now)
		require.NoError(t, err)
		require.NotNil(t, cred.Claims)
		assert.True(t, cred.Claims.ExpiresAt.IsZero())
		assert.False(t, cred.Expired(now.Add(24*time.Hour)))
	})
}

func TestCredentialExpired(t *testing.T) {
	now := time.Now()
	cred := &Credential{
		Token:  "token",
		Claims: &Claims{ExpiresAt: now.Add(time.Minute)},
	}

	assert.False(t, cred.Expired(now))
	assert.True(t, cred.Expired(now.Add(2*time.Minute)))
}
