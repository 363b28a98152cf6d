// Package auth issues and checks the bearer tokens peer nodes present on the
// callback surface.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the calling node and the jurisdiction it speaks for.
type Claims struct {
	jwt.RegisteredClaims
	NodeID       string
	Jurisdiction string
}

func GenerateToken(nodeID, jurisdiction string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   nodeID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		NodeID:       nodeID,
		Jurisdiction: jurisdiction,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken validates tokenString and returns its claims. Expired tokens
// yield common.ErrTokenExpired, anything else wrong common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.NodeID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
