package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLen is the shortest HMAC secret accepted.
const MinSecretLen = 32

// ErrWeakSecret is returned for secrets under MinSecretLen bytes.
var ErrWeakSecret = fmt.Errorf("secret must be at least %d bytes", MinSecretLen)

// ValidateSecret rejects secrets too short for HS256.
func ValidateSecret(secret []byte) error {
	if len(secret) < MinSecretLen {
		return ErrWeakSecret
	}
	return nil
}

// GenerateToken signs claims with secret. IssuedAt and ExpiresAt are set
// from expiry.
func GenerateToken(secret []byte, claims *Claims, expiry time.Duration) (string, error) {
	if err := ValidateSecret(secret); err != nil {
		return "", fmt.Errorf("auth: %w", err)
	}

	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(expiry))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken parses tokenStr. The signing method is pinned to HS256.
func ValidateToken(secret []byte, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v (only HS256 allowed)", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
