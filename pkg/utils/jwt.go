package utils

import (
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
)

const (
	RoleAdmin = "admin"
	RoleStore = "store"
)

// CreateJWTToken signs the claims the payment routes expect. Tokens are
// normally issued by the account service; this is used by tooling and tests.
func CreateJWTToken(userID int64, role string, storeID int64, jwtSecretKey string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{}
	claims["authorized"] = true
	claims["userID"] = userID
	claims["role"] = role
	claims["storeID"] = storeID
	claims["exp"] = time.Now().Add(ttl).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecretKey))
}

func ExtractTokenUser(c echo.Context) (userID int64, role string, storeID int64) {
	user, ok := c.Get("user").(*jwt.Token)
	if !ok || !user.Valid {
		return 0, "", 0
	}

	claims, ok := user.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", 0
	}

	if v, ok := claims["userID"].(float64); ok {
		userID = int64(v)
	}
	if v, ok := claims["role"].(string); ok {
		role = v
	}
	if v, ok := claims["storeID"].(float64); ok {
		storeID = int64(v)
	}
	return userID, role, storeID
}
