package security

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"admin-dashboard/pkg/logger"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const sessionKey = "session"

type KeycloakClaims struct {
	Azp               string `json:"azp"`
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	EmailVerified     bool   `json:"email_verified"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	jwt.RegisteredClaims
}

// Session is the authenticated dashboard operator for one request.
// Token is the raw bearer string, forwarded verbatim to downstream APIs.
type Session struct {
	Subject   string    `json:"subject"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expires_at"`
	Token     string    `json:"-"`
}

// Expired reports whether the session is no longer valid at now.
// A session without an expiry never expires.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

func (s *Session) HasRole(role string) bool {
	return slices.Contains(s.Roles, role)
}

// SessionFrom returns the session stored by AuthMiddleware.
func SessionFrom(c *gin.Context) (*Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*Session)
	return s, ok
}

// NewJWKS fetches the realm keys and refreshes them in the background.
// The returned stop function ends the refresh goroutine.
func NewJWKS(jwksURL string) (jwt.Keyfunc, func(), error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:  time.Hour,
		RefreshTimeout:   10 * time.Second,
		RefreshRateLimit: time.Minute * 5,
		RefreshErrorHandler: func(err error) {
			logger.Logger.Error().Err(err).Msg("error refreshing JWKS")
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create JWKS client: %w", err)
	}
	return jwks.Keyfunc, jwks.EndBackground, nil
}

// AuthMiddleware validates the bearer JWT, requires role when it is not
// empty, and stores a *Session in the gin context.
func AuthMiddleware(keyFunc jwt.Keyfunc, clientID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			unauthorized(c, "Invalid authorization header format")
			return
		}
		tokenString := parts[1]

		token, err := jwt.ParseWithClaims(tokenString, &KeycloakClaims{}, keyFunc)
		if err != nil {
			unauthorized(c, fmt.Sprintf("Invalid token: %v", err))
			return
		}
		if !token.Valid {
			unauthorized(c, "Token is not valid")
			return
		}

		claims, ok := token.Claims.(*KeycloakClaims)
		if !ok {
			unauthorized(c, "Failed to extract claims")
			return
		}

		if claims.Azp != clientID {
			unauthorized(c, "Invalid audience")
			return
		}

		session := &Session{
			Subject:  claims.Subject,
			Username: claims.PreferredUsername,
			Email:    claims.Email,
			Roles:    claims.RealmAccess.Roles,
			Token:    tokenString,
		}
		if claims.ExpiresAt != nil {
			session.ExpiresAt = claims.ExpiresAt.Time
		}
		if session.Expired(time.Now()) {
			unauthorized(c, "Token has expired")
			return
		}

		if role != "" && !session.HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient role"})
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}
