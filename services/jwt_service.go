package services

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/juju/errors"

	"home-services-server/models"
	"home-services-server/types"
)

const tokenIssuer = "home-services-server"

// JWTService issues and validates bearer tokens
type JWTService struct {
	secret []byte
	expiry time.Duration
}

// NewJWTService creates a new JWT service
func NewJWTService(secret string, expiry time.Duration) *JWTService {
	return &JWTService{secret: []byte(secret), expiry: expiry}
}

// GenerateToken signs an HS256 token carrying the account id and role
func (js *JWTService) GenerateToken(account *models.Account) (string, error) {
	now := time.Now()
	claims := &types.Claims{
		UserID: account.ID,
		Role:   string(account.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(js.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatUint(uint64(account.ID), 10),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(js.secret)
	if err != nil {
		return "", errors.Annotate(err, "signing token")
	}
	return signed, nil
}

// ValidateToken parses a token and returns its claims. Every failure is
// reported as Unauthorized.
func (js *JWTService) ValidateToken(tokenString string) (*types.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &types.Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return js.secret, nil
	})
	if err != nil {
		return nil, errors.Unauthorizedf("invalid or expired token")
	}

	claims, ok := token.Claims.(*types.Claims)
	if !ok || !token.Valid {
		return nil, errors.Unauthorizedf("invalid or expired token")
	}
	return claims, nil
}
