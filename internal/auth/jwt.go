package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims carried by device tokens.
type Claims struct {
	DeviceID string `json:"device_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// ErrNotConfigured indicates token operations were attempted without a
// configured secret.
var ErrNotConfigured = errors.New("jwt secret not configured")

// TokenIssuer signs and validates device tokens with an HS256 secret.
// A nil or empty secret disables authentication.
type TokenIssuer struct {
	secret []byte
}

// NewTokenIssuer creates an issuer; secret may be empty to disable auth.
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret)}
}

// Enabled reports whether token validation is configured.
func (i *TokenIssuer) Enabled() bool {
	return len(i.secret) > 0
}

// GenerateDeviceToken signs a 24 h device token.
func (i *TokenIssuer) GenerateDeviceToken(deviceID string) (string, error) {
	if !i.Enabled() {
		return "", ErrNotConfigured
	}

	claims := &Claims{
		DeviceID: deviceID,
		Role:     "device",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// ValidateToken parses and validates a token, returning its claims.
func (i *TokenIssuer) ValidateToken(tokenString string) (*Claims, error) {
	if !i.Enabled() {
		return nil, ErrNotConfigured
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrInvalidKey
}
