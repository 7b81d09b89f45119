package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidResetToken is returned for unparsable, expired or reused reset tokens.
var ErrInvalidResetToken = errors.New("invalid reset token")

// ResetClaims holds password-reset token claims. PasswordFP fingerprints the
// password hash current at issue time, so a token stops validating once the
// password changes (single use without a token table).
type ResetClaims struct {
	UserID     uuid.UUID `json:"user_id"`
	PasswordFP string    `json:"pwd_fp"`
	jwt.RegisteredClaims
}

// ResetService issues and validates short-lived password-reset tokens.
type ResetService struct {
	secret []byte
	expire time.Duration
}

// NewResetService creates a reset token service.
func NewResetService(secret string, expireMinutes int) *ResetService {
	return &ResetService{
		secret: []byte(secret),
		expire: time.Duration(expireMinutes) * time.Minute,
	}
}

// PasswordFingerprint derives the claim value binding a token to the current
// password hash.
func PasswordFingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}

// Generate creates a reset token for the user.
func (s *ResetService) Generate(userID uuid.UUID, passwordHash string) (string, error) {
	claims := ResetClaims{
		UserID:     userID,
		PasswordFP: PasswordFingerprint(passwordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.expire)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and validates a reset token, returning its claims.
func (s *ResetService) Validate(tokenString string) (*ResetClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ResetClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidResetToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidResetToken
	}
	claims, ok := token.Claims.(*ResetClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidResetToken
	}
	return claims, nil
}
