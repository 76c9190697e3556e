package echoapi

import (
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/resultportal/core"
)

const (
	contextTokenKey = "operatorToken"
	adminRolePrefix = "admin:"
)

// Claims represents the authorization claims transmitted via a JWT issued by the hosted auth provider.
type Claims struct {
	jwt.StandardClaims
	Username string   `json:"username,omitempty"`
	Email    string   `json:"email,omitempty"`
	IsAdmin  bool     `json:"is_admin,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// CanAdminister reports whether the token grants access to the admin portal.
func (c Claims) CanAdminister() bool {
	if c.IsAdmin {
		return true
	}
	for _, role := range c.Roles {
		if strings.HasPrefix(role, adminRolePrefix) {
			return true
		}
	}
	return false
}

func (c Claims) Operator() *core.Operator {
	return &core.Operator{ID: c.Subject, Username: c.Username, Email: c.Email}
}

func newJWTConfig(secret string) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(secret),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// GenerateToken generates a signed JWT token string representing the operator Claims.
func GenerateToken(secret string, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)

	ss, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// contextOperator returns the authenticated operator, or nil on public routes.
func contextOperator(ctx echo.Context) *core.Operator {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return nil
	}
	return claims.Operator()
}
