package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// AccessClaims are the claims the gateway puts into its access tokens.
type AccessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// JWTIntrospector validates access tokens locally with the gateway's shared HS256 secret.
type JWTIntrospector struct {
	secret []byte
	leeway time.Duration
}

func NewJWTIntrospector(secret string) *JWTIntrospector {
	return &JWTIntrospector{secret: []byte(secret), leeway: 30 * time.Second}
}

func (j *JWTIntrospector) Introspect(_ context.Context, accessToken string) (*User, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(accessToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return j.secret, nil
	}, jwt.WithLeeway(j.leeway), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &User{ID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}

// SignAccessToken mints a token in the gateway's format. Used by tests and local tooling.
func (j *JWTIntrospector) SignAccessToken(userID, email string, ttl time.Duration) (string, error) {
	claims := AccessClaims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}
