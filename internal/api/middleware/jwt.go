package middleware

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ManagerClaims are the JWT claims a manager token carries in jwt auth
// mode. The token is signed HS256 with the configured API key as secret.
type ManagerClaims struct {
	ManagerID string `json:"manager_id"`
	Name      string `json:"name,omitempty"`
	TeamID    string `json:"team_id,omitempty"`
	jwt.RegisteredClaims
}

// GenerateManagerToken creates a signed manager token. Used by the seed
// tool and by tests; the server itself only verifies.
func GenerateManagerToken(secret []byte, managerID, name, teamID string, expiresIn time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(expiresIn)

	claims := ManagerClaims{
		ManagerID: managerID,
		Name:      name,
		TeamID:    teamID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "banquet",
			Subject:   managerID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// parseManagerToken verifies the signature and returns the claims.
func parseManagerToken(secret []byte, tokenString string) (*ManagerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ManagerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*ManagerClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
