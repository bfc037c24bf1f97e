// Package jwt реализует генерацию и парсинг JWT токенов для привилегированных
// запросов. Токен несёт идентификатор вызывающей стороны, по которому
// бизнес-логика проверяет право на административные действия.
package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims описывает данные, хранящиеся в токене.
type CustomClaims struct {
	CallerID             string `json:"caller_id"` // Идентификатор вызывающей стороны
	jwt.RegisteredClaims        // Встроенные стандартные claims JWT (ExpiresAt, IssuedAt и пр.)
}

// Maker создаёт и проверяет токены с заданным секретом и временем жизни.
type Maker struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewMaker возвращает Maker с заданным секретным ключом и TTL токена.
func NewMaker(secretKey string, tokenTTL time.Duration) *Maker {
	return &Maker{secretKey: secretKey, tokenTTL: tokenTTL}
}

// GenerateToken создает JWT токен для callerID, подписывая его секретным ключом.
//
// Время жизни токена определяется полем tokenTTL.
func (j *Maker) GenerateToken(callerID string) (string, error) {
	claims := CustomClaims{
		CallerID: callerID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(j.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secretKey))
}

// ParseToken парсит JWT токен, проверяет его подпись и валидность,
// возвращает CustomClaims с данными, если токен корректен.
func (j *Maker) ParseToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	return claims, nil
}
