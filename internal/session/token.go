package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Browser sessions outlive the Google token; the Google side is
// refreshed independently.
const sessionTokenTTL = 7 * 24 * time.Hour

// MintSessionToken issues the signed token the browser presents on
// every API call. Requires a signed-in profile.
func (m *Manager) MintSessionToken() (string, error) {
	m.mu.Lock()
	profile := m.profile
	m.mu.Unlock()

	email := "demo@family.local"
	if profile != nil {
		email = profile.Email
	} else if !m.demo {
		return "", fmt.Errorf("no signed-in profile")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": email,
		"iat": now.Unix(),
		"exp": now.Add(sessionTokenTTL).Unix(),
	})
	return token.SignedString(m.sessionSecret)
}

// VerifySessionToken validates a browser token and returns the account
// email it was issued for.
func (m *Manager) VerifySessionToken(raw string) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.sessionSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid session token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid session token claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("session token missing subject")
	}
	return sub, nil
}
