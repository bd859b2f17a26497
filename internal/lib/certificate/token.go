// Package certificate produces the registration certificate of a bicycle:
// the QR code pointing at its public verification page, the signed token that
// proves the certificate was issued here, and the printable PDF.
package certificate

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const Issuer = "bikereg"

var ErrInvalidToken = errors.New("invalid certificate token")

// Claims identify the bicycle and owner a certificate was issued for.
type Claims struct {
	BicycleID string `json:"bicycle_id"`
	Serial    string `json:"serial"`
	OwnerID   string `json:"owner_id"`
	jwt.RegisteredClaims
}

type Signer struct {
	key []byte
}

func NewSigner(key string) *Signer {
	return &Signer{key: []byte(key)}
}

func (s *Signer) Sign(bicycleID uuid.UUID, serial, ownerID string, issuedAt time.Time) (string, error) {
	claims := Claims{
		BicycleID: bicycleID.String(),
		Serial:    serial,
		OwnerID:   ownerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   Issuer,
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign certificate token: %w", err)
	}
	return token, nil
}

// Parse validates token and returns its claims. Every failure wraps
// ErrInvalidToken.
func (s *Signer) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(token), claims, func(t *jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.BicycleID); err != nil || claims.Serial == "" || claims.OwnerID == "" {
		return nil, fmt.Errorf("%w: incomplete claims", ErrInvalidToken)
	}
	return claims, nil
}

// Number derives the human-readable certificate number printed on the PDF.
func Number(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "BR-" + strings.ToUpper(hex.EncodeToString(sum[:])[:12])
}
