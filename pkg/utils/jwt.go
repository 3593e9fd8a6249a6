package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken      = errors.New("no token found")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// SessionClaims is what the storefront reads from the backend's access token.
type SessionClaims struct {
	UserID    string
	Email     string
	Name      string
	Role      string
	ExpiresAt time.Time
}

// TokenParser reads backend access tokens. With a secret the HS256 signature is
// verified; without one the claims are read as-is and only the expiry is checked,
// leaving authentication to the backend.
type TokenParser struct {
	secret []byte
	now    func() time.Time
}

func NewTokenParser(secret string) *TokenParser {
	return &TokenParser{secret: []byte(secret), now: time.Now}
}

func (p *TokenParser) Verifies() bool {
	return len(p.secret) > 0
}

func (p *TokenParser) Parse(tokenString string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}

	claims := jwt.MapClaims{}
	if p.Verifies() {
		_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return p.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(p.now))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return nil, ErrTokenExpired
			}
			return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	sc := &SessionClaims{
		UserID: stringClaim(claims, "_id"),
		Email:  stringClaim(claims, "email"),
		Name:   stringClaim(claims, "name"),
		Role:   roleClaim(claims),
	}
	if sc.UserID == "" {
		sc.UserID = stringClaim(claims, "sub")
	}
	if exp != nil {
		sc.ExpiresAt = exp.Time
		if !p.now().Before(exp.Time) {
			return nil, ErrTokenExpired
		}
	}
	return sc, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}

// roleClaim accepts the role either as a name or as an embedded {_id, name}.
func roleClaim(claims jwt.MapClaims) string {
	switch r := claims["role"].(type) {
	case string:
		return r
	case map[string]interface{}:
		name, _ := r["name"].(string)
		return name
	}
	return ""
}

// ExtractToken returns the bearer token of a request, falling back to the
// accessToken cookie.
func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	if cookie, err := r.Cookie("accessToken"); err == nil {
		return cookie.Value
	}
	return ""
}
