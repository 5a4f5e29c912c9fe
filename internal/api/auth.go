package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const playerHeader = "X-Player-ID"

type ctxKey int

const playerKey ctxKey = iota

var errNoPlayer = errors.New("player id missing in context")

// Authenticator resolves the player of a request. With an empty secret
// (dev mode) the X-Player-ID header is trusted as is.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

func (a *Authenticator) devMode() bool { return len(a.secret) == 0 }

// IssueToken signs an HS256 token with sub = playerID.
func (a *Authenticator) IssueToken(playerID string, ttl time.Duration) (string, error) {
	if a.devMode() {
		return "", errors.New("jwt secret is not configured")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   playerID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    "billionaire-empire",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}
	return token, nil
}

// VerifyToken returns the player id carried by tokenString.
func (a *Authenticator) VerifyToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("failed to parse JWT: %w", err)
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("invalid JWT token")
	}
	return claims.Subject, nil
}

// Middleware puts the player id into the request context or answers 401.
func (a *Authenticator) Middleware(eh *ErrorHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := a.identify(r)
			if err != nil {
				eh.HandleError(w, r, NewUnauthorizedError(err.Error()))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), playerKey, id)))
		})
	}
}

func (a *Authenticator) identify(r *http.Request) (string, error) {
	if a.devMode() {
		id := strings.TrimSpace(r.Header.Get(playerHeader))
		if id == "" {
			return "", errors.New("X-Player-ID header required")
		}
		return id, nil
	}
	auth := r.Header.Get("Authorization")
	tokenString, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		// браузерный websocket не умеет ставить заголовки
		tokenString = r.URL.Query().Get("token")
	}
	if strings.TrimSpace(tokenString) == "" {
		return "", errors.New("bearer token required")
	}
	return a.VerifyToken(strings.TrimSpace(tokenString))
}

func playerFrom(ctx context.Context) (string, error) {
	id, ok := ctx.Value(playerKey).(string)
	if !ok || id == "" {
		return "", errNoPlayer
	}
	return id, nil
}
