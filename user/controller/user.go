package controller

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/validate"
	"github.com/Alturino/storefront/user/internal/otel"
	"github.com/Alturino/storefront/user/pkg/request"
	"github.com/Alturino/storefront/user/service"
)

type UserController struct {
	sessions *service.SessionManager
	validate *validator.Validate
}

func AttachUserController(router *mux.Router, sessions *service.SessionManager) {
	controller := UserController{sessions: sessions, validate: validate.New()}

	authRouter := router.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/login", controller.Login).Methods(http.MethodPost)
	authRouter.HandleFunc("/logout", controller.Logout).Methods(http.MethodPost)
	authRouter.HandleFunc("/session", controller.Session).Methods(http.MethodGet)

	router.HandleFunc("/users", controller.Register).Methods(http.MethodPost)
}

func (ctrl UserController) Login(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "UserController Login")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "UserController Login").Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	reqBody := request.LoginRequest{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err.Error())
		return
	}
	logger = logger.With().Object(log.KeyRequestBody, reqBody).Logger()
	logger.Trace().Msg("decoded request body")

	logger = logger.With().Str(log.KeyProcess, "validating request body").Logger()
	if err := ctrl.validate.StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err.Error())
		return
	}
	logger.Trace().Msg("validated request body")

	logger = logger.With().Str(log.KeyProcess, "logging in").Logger()
	c = logger.WithContext(c)
	session, err := ctrl.sessions.Login(c, reqBody)
	if err != nil {
		err = fmt.Errorf("failed logging in with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, inHttp.StatusCode(err), err.Error())
		return
	}
	logger.Info().Msg("logged in")

	inHttp.WriteSuccess(c, w, http.StatusOK, "Login successful!", map[string]interface{}{
		"session": session,
	})
}

func (ctrl UserController) Logout(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "UserController Logout")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "UserController Logout").Logger()

	logger = logger.With().Str(log.KeyProcess, "logging out").Logger()
	c = logger.WithContext(c)
	if err := ctrl.sessions.Logout(c); err != nil {
		err = fmt.Errorf("failed logging out with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, inHttp.StatusCode(err), err.Error())
		return
	}
	logger.Info().Msg("logged out")

	inHttp.WriteSuccess(c, w, http.StatusOK, "successfully logged out", map[string]interface{}{})
}

func (ctrl UserController) Session(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "UserController Session")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "UserController Session").Logger()

	logger = logger.With().Str(log.KeyProcess, "reading session").Logger()
	c = logger.WithContext(c)
	session, err := ctrl.sessions.Current(c)
	if err != nil {
		err = fmt.Errorf("failed reading session with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, inHttp.StatusCode(err), err.Error())
		return
	}

	inHttp.WriteSuccess(c, w, http.StatusOK, "successfully read session", map[string]interface{}{
		"session": session,
	})
}

func (ctrl UserController) Register(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "UserController Register")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "UserController Register").Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	reqBody := request.Register{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err.Error())
		return
	}

	logger = logger.With().Str(log.KeyProcess, "validating request body").Logger()
	if err := ctrl.validate.StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err.Error())
		return
	}

	logger = logger.With().Str(log.KeyProcess, "registering user").Logger()
	c = logger.WithContext(c)
	profile, err := ctrl.sessions.Register(c, reqBody)
	if err != nil {
		err = fmt.Errorf("failed registering user with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, inHttp.StatusCode(err), err.Error())
		return
	}
	logger.Info().Msg("registered user")

	inHttp.WriteSuccess(c, w, http.StatusCreated, "successfully registered user", map[string]interface{}{
		"user": profile,
	})
}
