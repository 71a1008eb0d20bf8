package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/unisdr/delta/pkg/approval"
)

const issuer = "delta"

// Claims are the actor token claims.
type Claims struct {
	jwt.RegisteredClaims
	Role approval.Role `json:"role"`
}

// IssueToken signs a token for a with the shared secret.
func IssueToken(secret []byte, a Actor, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("token secret is empty")
	}
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: a.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken validates an actor token and returns its Actor.
func ParseToken(secret []byte, tokenString string) (Actor, error) {
	if len(secret) == 0 {
		return Actor{}, errors.New("token secret is empty")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Actor{}, fmt.Errorf("invalid actor token: %w", err)
	}
	if !token.Valid {
		return Actor{}, jwt.ErrTokenSignatureInvalid
	}
	if claims.Subject == "" {
		return Actor{}, errors.New("invalid actor token: missing subject")
	}
	if !claims.Role.Valid() {
		return Actor{}, fmt.Errorf("invalid actor token: unknown role %q", claims.Role)
	}
	return Actor{UserID: claims.Subject, Role: claims.Role}, nil
}
