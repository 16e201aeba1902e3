package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/edulearn/report-gateway/internal/models"
	apperrors "github.com/edulearn/report-gateway/pkg/errors"
)

// AuthConfig defines token validation settings. The gateway shares the HS256
// secret with the legacy backend, which remains the only token issuer.
type AuthConfig struct {
	AccessTokenSecret string
}

// AuthService validates access tokens minted by the legacy backend. Login,
// refresh and password flows stay upstream; the report workflow only needs
// to know who is calling and with which role.
type AuthService struct {
	logger *zap.Logger
	config AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{logger: logger, config: config}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnauthorized.Code, apperrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, apperrors.Clone(apperrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}
