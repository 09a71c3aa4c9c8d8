package service

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/attendly/attendance-api/internal/models"
	appErrors "github.com/attendly/attendance-api/pkg/errors"
)

// AuthConfig defines the verification key material for bearer tokens.
type AuthConfig struct {
	Secret    string
	Algorithm string
}

// AuthService verifies bearer tokens and extracts the caller's identity.
// Tokens are issued by the external identity provider; claims are only
// trusted after the signature checks out against the configured secret.
type AuthService struct {
	secret []byte
	alg    string
	logger *zap.Logger
}

// NewAuthService constructs an AuthService. Only HMAC algorithms are
// accepted; the configured secret is shared with the identity provider.
func NewAuthService(cfg AuthConfig, logger *zap.Logger) (*AuthService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret must be configured")
	}
	alg := cfg.Algorithm
	if alg == "" {
		alg = "HS256"
	}
	if _, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported jwt algorithm %q", alg)
	}
	return &AuthService{secret: []byte(cfg.Secret), alg: alg, logger: logger}, nil
}

// ValidateToken verifies the token signature and returns the claims. It is a
// pure function of the token string and the configured key; no I/O happens
// here.
func (s *AuthService) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != s.alg {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{s.alg}))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidToken.Code, appErrors.ErrInvalidToken.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrInvalidToken, "invalid token claims")
	}

	if strings.TrimSpace(claims.PreferredUsername) == "" {
		return nil, appErrors.ErrMissingIdentityClaim
	}

	return claims, nil
}
