package auth

import (
	"context"
	"time"

	"campuscrave/globals"
	"campuscrave/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const accessTokenTTL = 72 * time.Hour

// Claims reference a server-side session; the session is the source of truth.
type Claims struct {
	SessionID string      `json:"sid"`
	UserID    string      `json:"userId"`
	Role      models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Tokens signs and checks session tokens.
type Tokens struct {
	secret []byte
}

func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret)}
}

func (t *Tokens) Issue(sess Session) (string, error) {
	now := time.Now()
	claims := &Claims{
		SessionID: sess.ID,
		UserID:    sess.User.ID,
		Role:      sess.User.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.User.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	return signed, errors.Wrap(err, "sign token")
}

func (t *Tokens) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errors.Wrap(err, "unauthorized")
	}
	if !token.Valid || claims.SessionID == "" {
		return nil, errors.New("unauthorized: invalid token")
	}
	return claims, nil
}

// Resolve maps a token to its live session. A token whose session was logged out is rejected.
func (s *Store) Resolve(t *Tokens, tokenString string) (Session, error) {
	claims, err := t.Parse(tokenString)
	if err != nil {
		return Session{}, err
	}
	sess, ok := s.Session(claims.SessionID)
	if !ok {
		return Session{}, ErrNoSession
	}
	return sess, nil
}

func WithSession(ctx context.Context, sess Session) context.Context {
	ctx = context.WithValue(ctx, globals.SessionKey, sess)
	ctx = context.WithValue(ctx, globals.UserIDKey, sess.User.ID)
	return context.WithValue(ctx, globals.RoleKey, sess.User.Role)
}

// SessionFrom returns the session Authenticate attached to ctx.
func SessionFrom(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(globals.SessionKey).(Session)
	return sess, ok
}
