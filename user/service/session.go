package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Alturino/storefront/internal/catalog"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/notify"
	inOtel "github.com/Alturino/storefront/internal/otel"
	inMetric "github.com/Alturino/storefront/internal/otel/metric"
	"github.com/Alturino/storefront/internal/session"
	"github.com/Alturino/storefront/user/internal/otel"
	"github.com/Alturino/storefront/user/pkg/request"
	"github.com/Alturino/storefront/user/pkg/response"
)

// Auth is the remote authentication API.
type Auth interface {
	Login(c context.Context, param request.LoginRequest) (string, error)
	Profile(c context.Context, token string) (response.Profile, error)
	Register(c context.Context, param request.Register) (response.Profile, error)
}

// Carts swaps the active cart between the anonymous and identity slots.
type Carts interface {
	Restore(c context.Context, email string) (bool, error)
	Archive(c context.Context, email string) error
}

// SessionManager moves the storefront between the anonymous and signed-in
// states, taking the active cart along.
type SessionManager struct {
	auth     Auth
	sessions *session.Store
	carts    Carts
	notifier notify.Notifier
	logins   metric.Int64Counter
}

func NewSessionManager(
	auth Auth,
	sessions *session.Store,
	carts Carts,
	notifier notify.Notifier,
) *SessionManager {
	return &SessionManager{
		auth:     auth,
		sessions: sessions,
		carts:    carts,
		notifier: notifier,
		logins:   inMetric.Int64Counter("storefront.session.logins", "Login attempts by outcome."),
	}
}

// Login exchanges credentials for a token and restores the identity's
// archived cart. A failed profile lookup still signs the user in, keyed by the
// login email and without a display name. A signed-in identity is signed out
// first, its cart archived, so the active cart never mixes two identities. The
// session is saved last, so a failed login leaves no credentials behind.
func (m *SessionManager) Login(c context.Context, param request.LoginRequest) (response.Session, error) {
	c, span := otel.Tracer.Start(c, "SessionManager Login")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "SessionManager Login").
		Str(log.KeyEmail, param.Email).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "requesting token").Logger()
	logger.Info().Msg("requesting token")
	span.AddEvent("requesting token")
	token, err := m.auth.Login(logger.WithContext(c), param)
	if catalog.ClientError(err) {
		err = errors.Join(inErrors.ErrUnauthenticated, err)
	}
	if err != nil {
		err = fmt.Errorf("failed requesting token with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		m.logins.Add(c, 1, metric.WithAttributes(attribute.String("outcome", "rejected")))
		return response.Session{}, err
	}
	span.AddEvent("received token")
	logger.Info().Msg("received token")

	current := response.Session{
		Token:     token,
		Email:     param.Email,
		ExpiresAt: session.ExpiresAt(token),
	}

	logger = logger.With().Str(log.KeyProcess, "fetching profile").Logger()
	logger.Info().Msg("fetching profile")
	profile, err := m.auth.Profile(logger.WithContext(c), token)
	if err != nil {
		err = fmt.Errorf("failed fetching profile with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Warn().Err(err).Msg("signing in without profile")
	} else {
		current.Email = profile.Email
		current.DisplayName = profile.Name
		logger.Info().Msg("fetched profile")
	}

	logger = logger.With().Str(log.KeyProcess, "loading previous session").Logger()
	previous, err := m.sessions.Load(logger.WithContext(c))
	if err != nil {
		err = fmt.Errorf("failed loading previous session with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Session{}, err
	}
	if previous.Token != "" {
		logger = logger.With().Str(log.KeyProcess, "signing out previous session").Logger()
		logger.Info().Str("previousEmail", previous.Email).Msg("signing out previous session")
		if err := m.endSession(logger.WithContext(c), previous); err != nil {
			err = fmt.Errorf("failed signing out previous session with error=%w", err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return response.Session{}, err
		}
		logger.Info().Msg("signed out previous session")
	}

	logger = logger.With().Str(log.KeyProcess, "restoring cart").Logger()
	logger.Trace().Msg("restoring cart")
	restored, err := m.carts.Restore(logger.WithContext(c), current.Email)
	if err != nil {
		err = fmt.Errorf("failed restoring cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		m.logins.Add(c, 1, metric.WithAttributes(attribute.String("outcome", "failed")))
		return response.Session{}, err
	}
	logger.Info().Bool("restored", restored).Msg("restored cart")

	logger = logger.With().Str(log.KeyProcess, "saving session").Logger()
	logger.Trace().Msg("saving session")
	if err := m.sessions.Save(logger.WithContext(c), current); err != nil {
		err = fmt.Errorf("failed saving session with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		if err := m.sessions.Delete(logger.WithContext(c)); err != nil {
			logger.Error().Err(err).Msg("failed deleting partial session")
		}
		return response.Session{}, err
	}
	logger.Info().Msg("saved session")

	m.logins.Add(c, 1, metric.WithAttributes(attribute.String("outcome", "accepted")))
	m.notifier.Notify(c, "Login successful!", notify.KindSuccess)
	return current, nil
}

// Logout archives the active cart under the signed-in identity and forgets
// the session. Logging out while signed out does nothing.
func (m *SessionManager) Logout(c context.Context) error {
	c, span := otel.Tracer.Start(c, "SessionManager Logout")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "SessionManager Logout").Logger()

	logger = logger.With().Str(log.KeyProcess, "loading session").Logger()
	current, err := m.sessions.Load(logger.WithContext(c))
	if err != nil {
		err = fmt.Errorf("failed loading session with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if current.Token == "" {
		logger.Info().Msg("already signed out")
		return nil
	}
	logger = logger.With().Str(log.KeyEmail, current.Email).Logger()

	logger = logger.With().Str(log.KeyProcess, "ending session").Logger()
	if err := m.endSession(logger.WithContext(c), current); err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("ended session")

	m.notifier.Notify(c, "Logged out successfully", notify.KindInfo)
	return nil
}

// endSession archives the active cart under current's identity and then
// forgets the credentials.
func (m *SessionManager) endSession(c context.Context, current response.Session) error {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "SessionManager endSession").
		Str(log.KeyEmail, current.Email).
		Logger()

	logger.Trace().Msg("archiving cart")
	if err := m.carts.Archive(logger.WithContext(c), current.Email); err != nil {
		return fmt.Errorf("failed archiving cart with error=%w", err)
	}
	logger.Info().Msg("archived cart")

	if err := m.sessions.Delete(logger.WithContext(c)); err != nil {
		return fmt.Errorf("failed deleting session with error=%w", err)
	}
	logger.Info().Msg("deleted session")
	return nil
}

func (m *SessionManager) Register(c context.Context, param request.Register) (response.Profile, error) {
	c, span := otel.Tracer.Start(c, "SessionManager Register")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "SessionManager Register").
		Object("register", param).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "registering user").Logger()
	logger.Info().Msg("registering user")
	profile, err := m.auth.Register(logger.WithContext(c), param)
	if err != nil {
		err = fmt.Errorf("failed registering user with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Profile{}, err
	}
	logger.Info().Msg("registered user")

	m.notifier.Notify(c, "Registration successful! Please login.", notify.KindSuccess)
	return profile, nil
}

func (m *SessionManager) Current(c context.Context) (response.Session, error) {
	c, span := otel.Tracer.Start(c, "SessionManager Current")
	defer span.End()

	current, err := m.sessions.Current(c)
	if err != nil {
		inOtel.RecordError(err, span)
		return response.Session{}, err
	}
	return current, nil
}
