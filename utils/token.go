package authUtils

import (
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"

	"civicresolve/lifecycle"
)

// Claims carried by session tokens. Token issuance belongs to the identity
// provider; this signer exists for local tooling and tests.
const (
	ClaimUserID = "user_id"
	ClaimRole   = "role"
)

// GenerateToken signs a token for userID acting as actor.
func GenerateToken(secret string, userID string, actor lifecycle.Actor, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("JWT secret is not set")
	}
	if !actor.Valid() {
		return "", fmt.Errorf("unknown actor %q", actor)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		ClaimUserID: userID,
		ClaimRole:   string(actor),
		"exp":       time.Now().Add(ttl).Unix(),
	})

	return token.SignedString([]byte(secret))
}

// ParseToken verifies an HS256 token and returns its user id and actor.
func ParseToken(secret, tokenString string) (string, lifecycle.Actor, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", "", fmt.Errorf("invalid token: %v", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("invalid token claims")
	}
	userID, _ := claims[ClaimUserID].(string)
	if userID == "" {
		return "", "", fmt.Errorf("token has no %s", ClaimUserID)
	}
	role, _ := claims[ClaimRole].(string)
	actor, err := lifecycle.ParseActor(role)
	if err != nil {
		return "", "", err
	}
	return userID, actor, nil
}
