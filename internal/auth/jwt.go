package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type TokenManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenManager(secret, issuer string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

type Claims struct {
	UserID      string `json:"uid"`
	GlobalAdmin bool   `json:"gadm,omitempty"`
	Type        string `json:"typ"` // "access" | "refresh"
	jwt.RegisteredClaims
}

// GeneratePair returns an access and refresh token for the user.
func (tm *TokenManager) GeneratePair(userID string, globalAdmin bool) (access, refresh string, accessExp time.Time, err error) {
	now := time.Now()

	sign := func(typ string, ttl time.Duration) (string, time.Time, error) {
		claims := Claims{
			UserID:      userID,
			GlobalAdmin: globalAdmin,
			Type:        typ,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    tm.issuer,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			},
		}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
		return tok, claims.ExpiresAt.Time, err
	}

	access, accessExp, err = sign("access", tm.accessTTL)
	if err != nil {
		return "", "", time.Time{}, err
	}
	refresh, _, err = sign("refresh", tm.refreshTTL)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return access, refresh, accessExp, nil
}

// Parse validates a token and reports whether it is a refresh token.
func (tm *TokenManager) Parse(tokenStr string) (*Claims, bool, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return tm.secret, nil
	})
	if err != nil {
		return nil, false, errors.New("invalid token")
	}
	switch claims.Type {
	case "access":
		return claims, false, nil
	case "refresh":
		return claims, true, nil
	}
	return nil, false, errors.New("invalid token")
}
