// Package session persists the signed-in identity in the key-value store
// under the token, userName and userEmail keys.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/kv"
	"github.com/Alturino/storefront/internal/log"
	userRes "github.com/Alturino/storefront/user/pkg/response"
)

const (
	KeyToken    = "token"
	KeyUserName = "userName"
	KeyEmail    = "userEmail"
)

type Store struct {
	kv  kv.Store
	now func() time.Time
}

func NewStore(store kv.Store) *Store {
	return &Store{kv: store, now: time.Now}
}

// WithClock replaces the clock used for token expiry.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// ExpiresAt reads the exp claim without verifying the signature. Tokens that
// are not JWTs, or carry no exp, never expire locally.
func ExpiresAt(token string) *time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	expiresAt := claims.ExpiresAt.Time
	return &expiresAt
}

func (s *Store) get(c context.Context, key string) (string, error) {
	value, err := s.kv.Get(c, key)
	if errors.Is(err, inErrors.ErrNotFound) {
		return "", nil
	}
	return value, err
}

// Load returns the persisted session, which may be empty or expired.
func (s *Store) Load(c context.Context) (userRes.Session, error) {
	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "session Store Load").Logger()

	token, err := s.get(c, KeyToken)
	if err != nil {
		err = fmt.Errorf("failed loading token with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return userRes.Session{}, err
	}
	if token == "" {
		return userRes.Session{}, nil
	}
	email, err := s.get(c, KeyEmail)
	if err != nil {
		err = fmt.Errorf("failed loading email with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return userRes.Session{}, err
	}
	name, err := s.get(c, KeyUserName)
	if err != nil {
		err = fmt.Errorf("failed loading userName with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return userRes.Session{}, err
	}

	return userRes.Session{
		Token:       token,
		Email:       email,
		DisplayName: name,
		ExpiresAt:   ExpiresAt(token),
	}, nil
}

// Current returns the active session or errors.ErrUnauthenticated.
func (s *Store) Current(c context.Context) (userRes.Session, error) {
	session, err := s.Load(c)
	if err != nil {
		return userRes.Session{}, err
	}
	if session.Token == "" {
		return userRes.Session{}, inErrors.ErrUnauthenticated
	}
	if !session.Active(s.now()) {
		return userRes.Session{}, fmt.Errorf("%w: %w", inErrors.ErrUnauthenticated, inErrors.ErrInvalidToken)
	}
	return session, nil
}

func (s *Store) Save(c context.Context, session userRes.Session) error {
	if err := s.kv.Set(c, KeyToken, session.Token); err != nil {
		return fmt.Errorf("failed saving token with error=%w", err)
	}
	if err := s.kv.Set(c, KeyEmail, session.Email); err != nil {
		return fmt.Errorf("failed saving email with error=%w", err)
	}
	if err := s.kv.Set(c, KeyUserName, session.DisplayName); err != nil {
		return fmt.Errorf("failed saving userName with error=%w", err)
	}
	zerolog.Ctx(c).Debug().Str(log.KeyTag, "session Store Save").Str(log.KeyEmail, session.Email).Msg("saved session")
	return nil
}

func (s *Store) Delete(c context.Context) error {
	if err := s.kv.Delete(c, KeyToken, KeyUserName, KeyEmail); err != nil {
		return fmt.Errorf("failed deleting session with error=%w", err)
	}
	return nil
}
