package middlewares

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"civicresolve/lifecycle"
	authUtils "civicresolve/utils"
)

const sessionKey = "session"

// SessionResolver completes the identity carried by a token, e.g. with the
// contractor profile of a contractor user.
type SessionResolver interface {
	Session(ctx context.Context, userID string, actor lifecycle.Actor) (lifecycle.Session, error)
}

func AuthMiddleware(secret string, resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.Request.Header.Get("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No authorization token provided", "code": "not_authorized"})
			return
		}

		// Extracting token from "Bearer <token>" format
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		if secret == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "JWT secret not configured"})
			return
		}

		userID, actor, err := authUtils.ParseToken(secret, tokenString)
		if err != nil {
			log.Printf("Token validation failed: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization token", "code": "not_authorized"})
			return
		}

		sess := lifecycle.Session{UserID: userID, Actor: actor}
		if resolver != nil {
			sess, err = resolver.Session(c.Request.Context(), userID, actor)
			if err != nil {
				log.Printf("Session lookup failed for %s: %v", userID, err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load session"})
				return
			}
		}

		c.Set(sessionKey, sess)
		c.Next()
	}
}

// CurrentSession returns the session stored by AuthMiddleware.
func CurrentSession(c *gin.Context) (lifecycle.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return lifecycle.Session{}, false
	}
	sess, ok := v.(lifecycle.Session)
	return sess, ok
}
