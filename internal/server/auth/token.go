// Package auth issues and verifies the HS256 service tokens that gate the
// grant-issuance endpoint. Only trusted internal services hold the signing
// key; end users never see these tokens.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/forgotpw/secretsvc/internal/common"
)

// Claims carries the calling service's name on top of the registered claims.
type Claims struct {
	jwt.RegisteredClaims
	Service string `json:"service"`
}

// GenerateToken mints a signed service token for the named caller.
func GenerateToken(service string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		Service: service,
	})

	return token.SignedString(secretKey)
}

// ServiceFromToken verifies a token and returns the service name it was
// issued to. Any parse, signature or expiry failure yields
// common.ErrorCredentialInvalid.
func ServiceFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", common.ErrorCredentialInvalid
	}

	if !token.Valid || claims.Service == "" {
		return "", common.ErrorCredentialInvalid
	}

	return claims.Service, nil
}
