package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidCredential = errors.New("invalid credential")

// Identity is the stable result of verifying a bearer credential. Set once
// per connection and immutable for its life.
type Identity struct {
	UserID   uint
	Username string
}

// Verifier validates bearer tokens issued by the auth service. Token
// issuance is not this service's concern; it only checks signatures and
// extracts the identity claims.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Verify(credential string) (Identity, error) {
	credential = strings.TrimPrefix(credential, "Bearer ")
	if credential == "" {
		return Identity{}, ErrInvalidCredential
	}

	token, err := jwt.Parse(credential, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidCredential
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidCredential
	}

	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return Identity{}, ErrInvalidCredential
	}

	username, _ := claims["username"].(string)

	return Identity{UserID: uint(userID), Username: username}, nil
}
