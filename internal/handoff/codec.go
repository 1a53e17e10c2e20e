// Package handoff mints and redeems the single-use codes that prove a
// physical exchange of goods. The code printed in a QR label is a signed
// JWT; the database row behind its JTI decides whether it is still valid.
package handoff

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"

	"github.com/erazemk/premik/internal/model"
)

// Claims is the payload carried by a handoff token.
type Claims struct {
	Entity   string      `json:"ent"`
	EntityID string      `json:"eid"`
	Phase    model.Phase `json:"phase"`
	jwt.RegisteredClaims
}

// Codec signs and parses handoff tokens.
type Codec struct {
	key []byte
}

// NewCodec derives the signing key from secret. Rotating the secret
// invalidates every outstanding token.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, fmt.Errorf("handoff secret must not be empty")
	}
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("premik handoff token v1"))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("deriving handoff key: %w", err)
	}
	return &Codec{key: key}, nil
}

// Sign creates a token string for the given binding.
func (c *Codec) Sign(jti, entity, entityID string, phase model.Phase, issuedAt time.Time) (string, error) {
	claims := Claims{
		Entity:   entity,
		EntityID: entityID,
		Phase:    phase,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       jti,
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("signing handoff token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token string and returns its claims. Forged or malformed
// strings fail with an InvalidToken error.
func (c *Codec) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, model.InvalidToken("malformed or forged token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, model.InvalidToken("malformed or forged token")
	}
	return claims, nil
}

// generateJTI creates a random 128-bit token ID.
func generateJTI() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
