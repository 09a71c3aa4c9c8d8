package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims is the payload of an access token issued by the identity
// provider. Identity is the preferred_username claim; everything else rides
// on the registered claim set.
type TokenClaims struct {
	PreferredUsername string `json:"preferred_username"`
	jwt.RegisteredClaims
}
