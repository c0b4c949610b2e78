package middleware

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// accessClaims mirrors the access tokens issued by the user service.
type accessClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTValidator returns a TokenValidator for HS256 tokens signed with secret.
// When issuer is non-empty the iss claim must match it.
func JWTValidator(secret, issuer string) TokenValidator {
	key := []byte(secret)
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(tokenString string) (*Claims, error) {
		var claims accessClaims
		token, err := parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
			return key, nil
		})
		if err != nil {
			return nil, fmt.Errorf("parse access token: %w", err)
		}
		if !token.Valid {
			return nil, errors.New("invalid access token")
		}

		userID := claims.UserID
		if userID == "" {
			userID = claims.Subject
		}
		return &Claims{UserID: userID, Email: claims.Email, Role: claims.Role}, nil
	}
}
