package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/kythia/questapi/config"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidAPIKey  = errors.New("invalid api key")
	ErrAPIKeyDisabled = errors.New("api key authentication is not configured")
	ErrMissingSecret  = errors.New("jwt secret is not configured")
	ErrEmptySubject   = errors.New("token subject is required")
	ErrEmptyAPIKey    = errors.New("api key is required")
)

// Service issues and checks the credentials accepted by admin endpoints.
type Service struct {
	config     *config.JWTConfig
	apiKeyHash string
	now        func() time.Time
}

func NewService(jwtCfg *config.JWTConfig, adminCfg *config.AdminConfig) *Service {
	s := &Service{config: jwtCfg, now: time.Now}
	if adminCfg != nil {
		s.apiKeyHash = strings.TrimSpace(adminCfg.APIKeyHash)
	}
	return s
}

// IssueToken signs an admin token for subject.
func (s *Service) IssueToken(subject string) (*TokenResponse, error) {
	if s.config == nil || s.config.Secret == "" {
		return nil, ErrMissingSecret
	}
	if strings.TrimSpace(subject) == "" {
		return nil, ErrEmptySubject
	}

	now := s.now()
	expiresAt := now.Add(s.config.ExpirationDuration())
	claims := AdminClaims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return nil, err
	}
	return &TokenResponse{Token: signed, ExpiresAt: expiresAt.UTC()}, nil
}

func (s *Service) ValidateToken(tokenString string) (*AdminClaims, error) {
	if s.config == nil || s.config.Secret == "" {
		return nil, ErrMissingSecret
	}
	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AdminClaims); ok && token.Valid && claims.Role == RoleAdmin {
		return claims, nil
	}
	return nil, ErrUnauthorized
}

// ValidateAPIKey compares key against the configured bcrypt hash.
func (s *Service) ValidateAPIKey(key string) error {
	if s.apiKeyHash == "" {
		return ErrAPIKeyDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.apiKeyHash), []byte(strings.TrimSpace(key))); err != nil {
		return ErrInvalidAPIKey
	}
	return nil
}

// HashAPIKey returns the bcrypt hash to configure as ADMIN_API_KEY_HASH.
func HashAPIKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrEmptyAPIKey
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
