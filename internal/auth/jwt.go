package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"smartattendance/internal/model"
)

// Token is an issued bearer credential.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Claims represents JWT payload.
type Claims struct {
	UserID string     `json:"userId"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the verified caller of an operation.
type Identity struct {
	UserID string
	Role   model.Role
}

var (
	errMalformed = errors.New("malformed token")
	errRejected  = errors.New("token rejected")
)

// Issue signs a credential for userID valid for ttl.
func Issue(userID string, role model.Role, issuer, key string, ttl time.Duration) (Token, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		return Token{}, err
	}
	return Token{AccessToken: signed, ExpiresAt: exp}, nil
}

// Parse validates a token and returns its identity. A token that is not a
// JWT at all yields errMalformed; one that fails verification yields errRejected.
func Parse(tokenStr, key, issuer string) (Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return []byte(key), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return Identity{}, errMalformed
		}
		return Identity{}, errRejected
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" || !claims.Role.Valid() {
		return Identity{}, errRejected
	}
	return Identity{UserID: claims.UserID, Role: claims.Role}, nil
}
