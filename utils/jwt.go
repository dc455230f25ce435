package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HomeownerClaims carries the verified unit binding of a portal access token
type HomeownerClaims struct {
	UnitID string `json:"unit_id"`
	UserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

func GenerateHomeownerToken(unitID, userID, secret string, expiresIn time.Duration) (string, error) {
	claims := HomeownerClaims{
		UnitID: unitID,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "homeowner-assistant-platform",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateHomeownerToken returns the claims for a valid token, or an error.
// The unit id carried here outranks any client-supplied unit id.
func ValidateHomeownerToken(tokenString, secret string) (*HomeownerClaims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.ParseWithClaims(tokenString, &HomeownerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %v", err)
	}

	claims, ok := token.Claims.(*HomeownerClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(time.Now()) {
		return nil, fmt.Errorf("token is expired")
	}

	return claims, nil
}

// ExtractTokenFromHeader strips the Bearer prefix from an Authorization header
func ExtractTokenFromHeader(header string) string {
	return strings.TrimPrefix(header, "Bearer ")
}
