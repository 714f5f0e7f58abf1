package auth

import (
	"errors"
	"time"

	"kitchenrent/pkg/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "kitchenrent"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrUnknownRole  = errors.New("token carries an unknown role")
)

// ActorClaims identifies the caller. Subject holds the actor ID.
type ActorClaims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

type TokenManager interface {
	Issue(actor model.Actor, ttl time.Duration) (string, error)
	Validate(tokenString string) (model.Actor, error)
}

type tokenManager struct {
	secret []byte
	now    func() time.Time
}

func NewTokenManager(secret string) TokenManager {
	return &tokenManager{secret: []byte(secret), now: time.Now}
}

func (m *tokenManager) Issue(actor model.Actor, ttl time.Duration) (string, error) {
	if actor.ID == "" || !actor.Role.IsValid() {
		return "", ErrInvalidToken
	}
	now := m.now()
	claims := ActorClaims{
		Role: actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *tokenManager) Validate(tokenString string) (model.Actor, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ActorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Actor{}, ErrExpiredToken
		}
		return model.Actor{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*ActorClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return model.Actor{}, ErrInvalidToken
	}
	if !claims.Role.IsValid() {
		return model.Actor{}, ErrUnknownRole
	}
	return model.Actor{ID: claims.Subject, Role: claims.Role}, nil
}
