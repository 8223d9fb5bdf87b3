package authflow

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenCodec seals and opens the stateless session claim set. Implementations
// must be safe for concurrent use with a fixed key.
type TokenCodec interface {
	// Encode stamps issued-at/expiry on the claims and returns the sealed
	// token. The claims pointer is mutated so callers can read the stamped
	// expiry back.
	Encode(claims *SessionClaims, maxAge time.Duration) (string, error)
	// Decode opens a sealed token and validates signature and expiry.
	Decode(token string) (*SessionClaims, error)
}

// SealedCodec signs the claim set with HS256 and seals the compact JWT in an
// AES-256-GCM envelope authenticated with an HMAC-SHA256 prefix, so claims
// are neither readable nor malleable client-side.
type SealedCodec struct {
	signingKey    []byte
	encryptionKey []byte
	hmacKey       []byte
	issuer        string
	logger        Logger
}

// NewSealedCodec creates a codec from the config key material.
func NewSealedCodec(cfg Config, logger Logger) *SealedCodec {
	if logger == nil {
		logger = defLogger{}
	}
	hmacKey := cfg.HMACKey
	if len(hmacKey) == 0 {
		hmacKey = cfg.SigningKey
	}
	return &SealedCodec{
		signingKey:    cfg.SigningKey,
		encryptionKey: cfg.EncryptionKey,
		hmacKey:       hmacKey,
		issuer:        cfg.BaseURL,
		logger:        logger,
	}
}

// Encode implements TokenCodec.
func (c *SealedCodec) Encode(claims *SessionClaims, maxAge time.Duration) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	now := time.Now()
	if claims.RegisteredClaims.IssuedAt == nil {
		claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.RegisteredClaims.ExpiresAt == nil {
		claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(maxAge))
	}
	if claims.RegisteredClaims.Issuer == "" {
		claims.RegisteredClaims.Issuer = c.issuer
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", errors.Wrap(err, ErrSigningFailed.Category, ErrSigningFailed.Message).
			WithTextCode(ErrSigningFailed.TextCode)
	}

	sealed, err := c.seal([]byte(signed))
	if err != nil {
		return "", errors.Wrap(err, ErrSigningFailed.Category, ErrSigningFailed.Message).
			WithTextCode(ErrSigningFailed.TextCode)
	}

	return sealed, nil
}

// Decode implements TokenCodec.
func (c *SealedCodec) Decode(tokenString string) (*SessionClaims, error) {
	signed, err := c.open(tokenString)
	if err != nil {
		return nil, err
	}

	token, err := jwt.ParseWithClaims(string(signed), &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			c.logger.Error("codec encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.signingKey, nil
	}, jwt.WithExpirationRequired(), jwt.WithIssuedAt())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenInvalid.Category, ErrTokenInvalid.Message).
			WithTextCode(ErrTokenInvalid.TextCode)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		c.logger.Error("codec could not map sealed claims")
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

func (c *SealedCodec) seal(plaintext []byte) (string, error) {
	block, err := aes.NewCipher(c.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)

	mac := hmac.New(sha256.New, c.hmacKey)
	mac.Write(ciphertext)
	signature := mac.Sum(nil)

	return base64.URLEncoding.EncodeToString(append(signature, ciphertext...)), nil
}

func (c *SealedCodec) open(token string) ([]byte, error) {
	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	if len(data) < sha256.Size {
		return nil, ErrTokenInvalid
	}

	signature := data[:sha256.Size]
	ciphertext := data[sha256.Size:]

	mac := hmac.New(sha256.New, c.hmacKey)
	mac.Write(ciphertext)
	if !hmac.Equal(signature, mac.Sum(nil)) {
		return nil, ErrTokenInvalid
	}

	block, err := aes.NewCipher(c.encryptionKey)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrTokenInvalid
	}

	nonce, encrypted := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, encrypted, nil)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	return plaintext, nil
}
