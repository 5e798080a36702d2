package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/clinicore/backend/internal/domain/shared"
	"github.com/clinicore/backend/internal/infrastructure/config"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingUserID    = errors.New("missing user_id in claims")
	ErrMissingOrgID     = errors.New("missing organization_id in claims")
)

// Claims represents custom JWT claims. A super-admin token carries no
// organization; every other token must name exactly one.
type Claims struct {
	jwt.RegisteredClaims
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id,omitempty"`
	Role           string `json:"role"`
	SuperAdmin     bool   `json:"super_admin,omitempty"`
}

// JWTService handles JWT token operations
type JWTService struct {
	secret     []byte
	expiration time.Duration
	issuer     string
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret:     []byte(cfg.Secret),
		expiration: cfg.AccessTokenExpiration,
		issuer:     cfg.Issuer,
	}
}

// GenerateTokenInput contains input for token generation
type GenerateTokenInput struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Role           string
	SuperAdmin     bool
}

// GenerateToken generates a signed access token
func (s *JWTService) GenerateToken(input GenerateTokenInput) (string, error) {
	now := time.Now()

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   input.UserID.String(),
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID:     input.UserID.String(),
		Role:       input.Role,
		SuperAdmin: input.SuperAdmin,
	}
	if input.OrganizationID != uuid.Nil {
		claims.OrganizationID = input.OrganizationID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateAccessToken validates an access token and returns its claims
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}

	if claims.UserID == "" {
		return nil, ErrMissingUserID
	}
	if !claims.SuperAdmin && claims.OrganizationID == "" {
		return nil, ErrMissingOrgID
	}

	return claims, nil
}

// ToAccessScope converts validated claims into a domain access scope
func (c *Claims) ToAccessScope() (shared.AccessScope, error) {
	userID, err := uuid.Parse(c.UserID)
	if err != nil {
		return shared.AccessScope{}, ErrInvalidClaims
	}

	if c.SuperAdmin {
		scope := shared.NewSuperAdminScope(userID, c.Role)
		// A super-admin may still pin a concrete organization
		if c.OrganizationID != "" {
			orgID, err := uuid.Parse(c.OrganizationID)
			if err != nil {
				return shared.AccessScope{}, ErrInvalidClaims
			}
			scope.OrganizationID = orgID
		}
		return scope, nil
	}

	orgID, err := uuid.Parse(c.OrganizationID)
	if err != nil {
		return shared.AccessScope{}, ErrInvalidClaims
	}
	return shared.NewAccessScope(userID, c.Role, orgID), nil
}
