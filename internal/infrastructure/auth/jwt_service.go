package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const AccessTokenTTL = time.Hour

// Claims is the authenticated identity carried by an access token.
type Claims struct {
	UserID uuid.UUID
	Role   string
}

// GenerateAccessToken issues an HS256 access token carrying the user id
// and role.
func GenerateAccessToken(userID uuid.UUID, role, secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("JWT secret not set")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID.String(),
		"role":    role,
		"jti":     uuid.NewString(),
		"exp":     time.Now().Add(AccessTokenTTL).Unix(),
		"iat":     time.Now().Unix(),
	})
	return token.SignedString([]byte(secret))
}

// ParseClaims validates the token signature and expiry and returns the
// identity claims.
func ParseClaims(tokenStr, secret string) (Claims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return Claims{}, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("invalid token claims")
	}

	idStr, ok := claims["user_id"].(string)
	if !ok {
		return Claims{}, fmt.Errorf("invalid user_id in token")
	}
	userID, err := uuid.Parse(idStr)
	if err != nil {
		return Claims{}, fmt.Errorf("invalid user_id in token")
	}
	role, ok := claims["role"].(string)
	if !ok {
		return Claims{}, fmt.Errorf("invalid role in token")
	}
	return Claims{UserID: userID, Role: role}, nil
}

// ParseUserID validates the token and returns only the user id claim.
func ParseUserID(tokenStr, secret string) (uuid.UUID, error) {
	claims, err := ParseClaims(tokenStr, secret)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.UserID, nil
}
