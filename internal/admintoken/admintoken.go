package admintoken

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "github.com/RahulUpadhay-art/consents-denied/pkg/domain-errors"
)

const adminScope = "consent:admin"

// Claims carries the admin token payload.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Service mints and validates short-lived admin tokens used to guard the
// consent reset endpoint.
type Service struct {
	signingKey []byte
	tokenTTL   time.Duration
}

func NewService(signingKey string, tokenTTL time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		tokenTTL:   tokenTTL,
	}
}

// Mint issues a signed admin token.
func (s *Service) Mint() (string, error) {
	now := time.Now()
	claims := Claims{
		Scope: adminScope,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not sign admin token")
	}
	return signed, nil
}

// ValidateAdminToken verifies signature, expiry, and the admin scope.
func (s *Service) ValidateAdminToken(tokenString string) error {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "unexpected signing method")
		}
		return s.signingKey, nil
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid admin token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid admin token claims")
	}
	if claims.Scope != adminScope {
		return dErrors.New(dErrors.CodeForbidden, "token lacks admin scope")
	}
	return nil
}
