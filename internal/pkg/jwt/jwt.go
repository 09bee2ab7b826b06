package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/kintai-works/kintai-backend-go/internal/domain/user"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const TokenTypeAccess = "access"

var (
	ErrInvalidToken  = errors.New("invalid access token")
	ErrMissingClaims = errors.New("token claims are missing from context")
	ErrTenantClaim   = errors.New("tenant_id claim is missing or invalid")
	ErrUserClaim     = errors.New("user_id claim is missing or invalid")
)

// Claims is the typed view of an access token.
type Claims struct {
	UserID   string
	Email    string
	TenantID string
	Role     user.Role
}

// IsAdmin reports whether the caller may manage other users' records.
func (c Claims) IsAdmin() bool {
	return c.Role.IsAdmin()
}

type Service interface {
	GenerateAccessToken(userID string, email string, tenantID string, role user.Role) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpirationTime string
	tokenAuth                 *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime string) Service {
	return &JWTService{
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

// GenerateAccessToken signs a token in the format the API verifies. Tokens are
// normally issued by the identity provider; this is used by tests and tooling.
func (j *JWTService) GenerateAccessToken(userID string, email string, tenantID string, role user.Role) (token string, expiresAt int64, err error) {
	expDuration, err := time.ParseDuration(j.accessTokenExpirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = time.Now().Add(expDuration).Unix()

	claims := map[string]interface{}{
		"user_id":   userID,
		"email":     email,
		"tenant_id": tenantID,
		"role":      string(role),
		"type":      TokenTypeAccess,
		"exp":       expiresAt,
	}

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

// ClaimsFromContext reads the verified access token placed in ctx by jwtauth.Verifier.
func ClaimsFromContext(ctx context.Context) (Claims, error) {
	_, raw, err := jwtauth.FromContext(ctx)
	if err != nil {
		return Claims{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}
	if raw == nil {
		return Claims{}, ErrMissingClaims
	}

	tenantID, ok := raw["tenant_id"].(string)
	if !ok || tenantID == "" {
		return Claims{}, ErrTenantClaim
	}

	userID, ok := raw["user_id"].(string)
	if !ok || userID == "" {
		return Claims{}, ErrUserClaim
	}

	email, _ := raw["email"].(string)
	role, _ := raw["role"].(string)

	return Claims{
		UserID:   userID,
		Email:    email,
		TenantID: tenantID,
		Role:     user.Role(role),
	}, nil
}
