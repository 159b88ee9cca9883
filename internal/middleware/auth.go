// Package middleware contains the gin middleware: the session gate and the
// Redis-backed rate limiter.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
)

// SessionCookie is the cookie carrying the signed session token.
const SessionCookie = "chat_session"

// ContextUserID is the gin context key under which the authenticated user id
// is stored.
const ContextUserID = "user_id"

// ErrNoSession means the request carried no session token at all.
var ErrNoSession = errors.New("no session token")

// SessionAuth gates access behind an authenticated session. The token is read
// from the session cookie, with an Authorization Bearer fallback for
// non-browser clients. A session with no bound user is denied: browser routes
// are redirected to the login page, everything else gets 401.
func SessionAuth(secret string, redirectToLogin bool) gin.HandlerFunc {
	if secret == "" {
		panic("session secret cannot be empty for SessionAuth middleware")
	}

	return func(c *gin.Context) {
		tokenStr, err := extractToken(c)
		if err != nil {
			deny(c, redirectToLogin)
			return
		}

		claims, err := validateToken(tokenStr, secret)
		if err != nil {
			logrus.WithError(err).Debug("Session gate: invalid session token")
			deny(c, redirectToLogin)
			return
		}

		userID, err := userIDClaim(claims)
		if err != nil {
			logrus.WithError(err).Warn("Session gate: token carries no usable user binding")
			deny(c, redirectToLogin)
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// UserID reads the authenticated user id the session gate stored on the
// context.
func UserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get(ContextUserID)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

func deny(c *gin.Context, redirectToLogin bool) {
	if redirectToLogin {
		c.Redirect(http.StatusFound, "/login")
	} else {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	}
	c.Abort()
}

func extractToken(c *gin.Context) (string, error) {
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie, nil
	}
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", ErrNoSession
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", jwt.ErrTokenMalformed
	}
	return parts[1], nil
}

func validateToken(tokenStr, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token or claims type")
}

func userIDClaim(claims jwt.MapClaims) (uint, error) {
	raw, ok := claims["user_id"]
	if !ok {
		return 0, errors.New("user_id claim missing")
	}
	// JWT numbers decode as float64.
	f, ok := raw.(float64)
	if !ok || f <= 0 || f != float64(uint(f)) {
		return 0, fmt.Errorf("user_id claim is not a valid positive integer: %v", raw)
	}
	return uint(f), nil
}
