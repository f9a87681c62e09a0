package helper

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"grocery_store/model"
)

const accessTokenTTL = 24 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func GenerateAccessToken(claim model.TokenClaim, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": claim.UserID,
		"role":   claim.Role,
		"exp":    time.Now().Add(accessTokenTTL).Unix(),
	})
	return token.SignedString(secret)
}

// ParseToken verifies an HS256 access token and returns its claims.
func ParseToken(tokenString string, secret []byte) (model.TokenClaim, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return model.TokenClaim{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return model.TokenClaim{}, ErrInvalidToken
	}
	id, ok := claims["userId"].(float64)
	if !ok || id <= 0 {
		return model.TokenClaim{}, ErrInvalidToken
	}
	role, _ := claims["role"].(string)
	return model.TokenClaim{UserID: uint(id), Role: role}, nil
}
