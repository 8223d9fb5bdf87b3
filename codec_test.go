package authflow

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *SealedCodec {
	t.Helper()
	return NewSealedCodec(testConfig().withDefaults(), nil)
}

func TestSealedCodecRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
		Name:             "Person",
		Email:            "person@example.com",
	}
	claims.SetMetadata("role", "member")

	token, err := codec.Encode(claims, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Encode stamps the claim set in place.
	require.False(t, claims.Issued().IsZero())
	require.False(t, claims.Expires().IsZero())

	decoded, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", decoded.UserID())
	assert.Equal(t, "Person", decoded.Name)
	assert.Equal(t, "person@example.com", decoded.Email)
	assert.Equal(t, "member", decoded.Metadata["role"])
	assert.Equal(t, "https://app.example.com", decoded.RegisteredClaims.Issuer)
}

func TestSealedCodecSealedTokenIsOpaque(t *testing.T) {
	codec := newTestCodec(t)

	claims := &SessionClaims{Email: "person@example.com"}
	token, err := codec.Encode(claims, time.Hour)
	require.NoError(t, err)

	// The sealed envelope must not leak the compact JWT structure.
	assert.NotContains(t, token, ".")
}

func TestSealedCodecExpiredToken(t *testing.T) {
	codec := newTestCodec(t)

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}

	token, err := codec.Encode(claims, time.Hour)
	require.NoError(t, err)

	_, err = codec.Decode(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestSealedCodecTamperedToken(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Encode(&SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}, time.Hour)
	require.NoError(t, err)

	tampered := []byte(token)
	tampered[len(tampered)/2] ^= 0x01

	_, err = codec.Decode(string(tampered))
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestSealedCodecWrongKeys(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Encode(&SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}, time.Hour)
	require.NoError(t, err)

	other := testConfig()
	other.SigningKey = []byte("xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx")
	other.EncryptionKey = []byte("yyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyy")
	otherCodec := NewSealedCodec(other.withDefaults(), nil)

	_, err = otherCodec.Decode(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestSealedCodecGarbageInput(t *testing.T) {
	codec := newTestCodec(t)

	for _, token := range []string{"", "not-base64!!!", "YWJjZA=="} {
		_, err := codec.Decode(token)
		assert.ErrorIs(t, err, ErrTokenInvalid, "token %q", token)
	}
}

func TestSealedCodecNilClaims(t *testing.T) {
	codec := newTestCodec(t)

	_, err := codec.Encode(nil, time.Hour)
	require.Error(t, err)
}
