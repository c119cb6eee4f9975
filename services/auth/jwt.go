package auth

import (
	"errors"
	"fmt"
	"time"

	"eventpilot/models/user"
	"eventpilot/models/valet"
	"eventpilot/services/permission"

	"github.com/golang-jwt/jwt/v5"
)

const ValetTokenTTL = 24 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

// UserClaims identify an account holder.
type UserClaims struct {
	UserID      string    `json:"id"`
	Username    string    `json:"username"`
	Role        user.Role `json:"role"`
	Permissions []string  `json:"permissions"`
	jwt.RegisteredClaims
}

// ValetClaims identify a valet employee.
type ValetClaims struct {
	EmployeeID string `json:"employeeId"`
	Username   string `json:"username"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	jwt.RegisteredClaims
}

func IssueUserToken(secret string, ttl time.Duration, u *user.User) (string, error) {
	now := time.Now()
	claims := UserClaims{
		UserID:      u.ID,
		Username:    u.Username,
		Role:        u.Role,
		Permissions: permission.List(u),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return sign(secret, claims)
}

func ParseUserToken(secret, token string) (*UserClaims, error) {
	var claims UserClaims
	if err := parse(secret, token, &claims); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

func IssueValetToken(secret string, e *valet.Employee) (string, error) {
	now := time.Now()
	claims := ValetClaims{
		EmployeeID: e.ID,
		Username:   e.Username,
		Name:       e.Name,
		Type:       "valet",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   e.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ValetTokenTTL)),
		},
	}
	return sign(secret, claims)
}

func ParseValetToken(secret, token string) (*ValetClaims, error) {
	var claims ValetClaims
	if err := parse(secret, token, &claims); err != nil {
		return nil, err
	}
	if claims.Type != "valet" || claims.EmployeeID == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

func sign(secret string, claims jwt.Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func parse(secret, token string, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}
