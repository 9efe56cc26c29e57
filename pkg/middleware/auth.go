package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/jwt"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/response"
)

const (
	UserIDKey     = "user_id"
	EmailKey      = "email"
	UsernameKey   = "username"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "

	// AccessCookie is the cookie the web client stores its access token in.
	AccessCookie = "access"
	// TokenQueryParam carries the token on WebSocket URLs, where browsers
	// cannot set headers.
	TokenQueryParam = "token"
)

// TokenValidator validates access tokens.
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// AuthMiddleware validates JWT access tokens issued by the account service.
type AuthMiddleware struct {
	validator TokenValidator
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(v TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: v}
}

// TokenFromRequest extracts a bearer token from the Authorization header,
// the access cookie or the token query parameter, in that order.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get(AuthHeaderKey); strings.HasPrefix(h, BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, BearerPrefix))
	}
	if c, err := r.Cookie(AccessCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get(TokenQueryParam)
}

// Authenticate resolves the caller's claims. It returns (nil, nil) when the
// request carries no token at all.
func (m *AuthMiddleware) Authenticate(r *http.Request) (*jwt.Claims, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return nil, nil
	}
	return m.validator.ValidateToken(token)
}

// RequireAuth rejects requests without a valid access token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := m.Authenticate(c.Request)
		if err != nil {
			response.Unauthorized(c, err.Error())
			c.Abort()
			return
		}
		if claims == nil {
			response.Unauthorized(c, "missing access token")
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth attaches the caller's identity when a valid token is present
// and lets anonymous requests through. An invalid token is still rejected.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := m.Authenticate(c.Request)
		if err != nil {
			response.Unauthorized(c, err.Error())
			c.Abort()
			return
		}
		if claims != nil {
			setClaims(c, claims)
		}
		c.Next()
	}
}

func setClaims(c *gin.Context, claims *jwt.Claims) {
	c.Set(UserIDKey, claims.UserID)
	c.Set(EmailKey, claims.Email)
	c.Set(UsernameKey, claims.Username)
}

// GetUserID extracts user ID from Gin context.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetUsername extracts username from Gin context.
func GetUsername(c *gin.Context) string {
	return c.GetString(UsernameKey)
}

// GetEmail extracts email from Gin context.
func GetEmail(c *gin.Context) string {
	return c.GetString(EmailKey)
}
