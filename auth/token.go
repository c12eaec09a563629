package auth

import (
	"context"
	"fasolink-chat/domain"
	"fasolink-chat/errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RolePublisher = "publisher"
	RoleOperator  = "operator"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID   int64    `json:"user_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates HS256 tokens.
// It is also a credential store for connection authentication.
type TokenIssuer struct {
	secret []byte
	issuer string
}

func NewTokenIssuer(secret, issuer string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), issuer: issuer}
}

// GenerateToken creates a signed JWT for a specific principal.
func (i *TokenIssuer) GenerateToken(principal domain.Principal, roles []string,
	authTokenDuration time.Duration) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID:   int64(principal.ID),
		Username: principal.Username,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(authTokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    i.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// ValidateToken parses and validates the signature, issuer and expiration of a JWT string.
func (i *TokenIssuer) ValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(i.issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.ErrInvalidToken
}

// LookupToken resolves a JWT into the principal it was issued for.
func (i *TokenIssuer) LookupToken(_ context.Context, token string) (domain.Principal, error) {
	claims, err := i.ValidateToken(token)
	if err != nil {
		return domain.Anonymous, err
	}
	if claims.UserID <= 0 {
		return domain.Anonymous, fmt.Errorf("%w: missing user_id", errors.ErrInvalidToken)
	}
	return domain.Principal{ID: domain.UserID(claims.UserID), Username: claims.Username}, nil
}
