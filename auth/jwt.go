package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"trips/entity"
)

type claims struct {
	Role entity.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier checks HS256 bearer tokens. The subject is the user id, the role claim the role.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) JWTVerifier {
	if secret == "" {
		panic("missing jwt secret")
	}

	return JWTVerifier{secret: []byte(secret)}
}

func (v JWTVerifier) Verify(_ context.Context, credential string) (entity.Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(
		credential,
		&c,
		func(*jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return entity.Identity{}, fmt.Errorf("could not parse token: %w", err)
	}
	if !token.Valid {
		return entity.Identity{}, errors.New("token is not valid")
	}
	if c.Subject == "" {
		return entity.Identity{}, errors.New("token has no subject")
	}

	role := c.Role
	if role == "" {
		role = entity.RoleStudent
	}

	return entity.Identity{UserID: c.Subject, Role: role}, nil
}

// NewToken signs a token for identity that expires after ttl.
func NewToken(secret string, identity entity.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("could not sign token: %w", err)
	}
	return signed, nil
}
