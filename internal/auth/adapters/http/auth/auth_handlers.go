// Package auth содержит HTTP обработчики сервиса учетных записей.
package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"megachess/internal/auth/adapters/http/dto"
	"megachess/internal/auth/adapters/http/middleware"
	"megachess/internal/auth/domain/entities"
	"megachess/internal/auth/ports/api"
	"megachess/pkg/logger"
)

// Константы для логирования.
const (
	LogHandlerRegister = "auth handler: register"
	LogHandlerConfirm  = "auth handler: confirm registration"
	LogHandlerLogin    = "auth handler: login"
	LogHandlerProfile  = "auth handler: get profile"

	ErrorInvalidRequest       = "invalid request"
	ErrorMissingToken         = "token is required"
	ErrorFailedToServeRequest = "failed to serve request"

	MsgConfirmationSent      = "confirmation email sent"
	MsgRegistrationConfirmed = "registration confirmed"
)

// Handler содержит HTTP обработчики учетных записей.
type Handler struct {
	useCase api.UserUseCase
}

// NewHandler создает новый экземпляр обработчика.
func NewHandler(useCase api.UserUseCase) *Handler {
	return &Handler{useCase: useCase}
}

// Register обрабатывает запрос на регистрацию нового пользователя.
func (h *Handler) Register(ctx fiber.Ctx) error {
	requestCtx := ctx.Context()
	log := logger.Log(requestCtx)
	log.Info(requestCtx, LogHandlerRegister)

	var req dto.RegisterRequest
	if err := ctx.Bind().JSON(&req); err != nil {
		log.Error(requestCtx, ErrorInvalidRequest, zap.Error(err))
		return respondError(ctx, http.StatusBadRequest, ErrorInvalidRequest)
	}

	if req.Username == "" || req.Password == "" || req.Email == "" {
		return respondError(ctx, http.StatusBadRequest, "username, password and email are required")
	}

	if err := h.useCase.Register(requestCtx, req.Username, req.Password, req.Email, req.AutoRegisterSecret); err != nil {
		log.Error(requestCtx, ErrorFailedToServeRequest, zap.Error(err))
		return respondError(ctx, statusFromError(err), err.Error())
	}

	if err := ctx.Status(http.StatusCreated).JSON(dto.RegisterResponse{Message: MsgConfirmationSent}); err != nil {
		return fmt.Errorf("sending response: %w", err)
	}
	return nil
}

// ConfirmRegistration обрабатывает переход по ссылке подтверждения.
func (h *Handler) ConfirmRegistration(ctx fiber.Ctx) error {
	requestCtx := ctx.Context()
	log := logger.Log(requestCtx)
	log.Info(requestCtx, LogHandlerConfirm)

	token := ctx.Query("token")
	if token == "" {
		return respondError(ctx, http.StatusBadRequest, ErrorMissingToken)
	}

	if err := h.useCase.ConfirmRegistration(requestCtx, token); err != nil {
		log.Error(requestCtx, ErrorFailedToServeRequest, zap.Error(err))
		return respondError(ctx, statusFromError(err), err.Error())
	}

	if err := ctx.Status(http.StatusOK).JSON(fiber.Map{"message": MsgRegistrationConfirmed}); err != nil {
		return fmt.Errorf("sending response: %w", err)
	}
	return nil
}

// Login обрабатывает запрос на получение auth-токена.
func (h *Handler) Login(ctx fiber.Ctx) error {
	requestCtx := ctx.Context()
	log := logger.Log(requestCtx)
	log.Info(requestCtx, LogHandlerLogin)

	var req dto.LoginRequest
	if err := ctx.Bind().JSON(&req); err != nil {
		log.Error(requestCtx, ErrorInvalidRequest, zap.Error(err))
		return respondError(ctx, http.StatusBadRequest, ErrorInvalidRequest)
	}

	if req.Username == "" || req.Password == "" {
		return respondError(ctx, http.StatusBadRequest, "username and password are required")
	}

	authToken, err := h.useCase.GetAuthToken(requestCtx, req.Username, req.Password)
	if err != nil {
		log.Error(requestCtx, ErrorFailedToServeRequest, zap.Error(err))
		return respondError(ctx, statusFromError(err), err.Error())
	}

	if err := ctx.Status(http.StatusOK).JSON(dto.LoginResponse{AuthToken: authToken}); err != nil {
		return fmt.Errorf("sending response: %w", err)
	}
	return nil
}

// GetProfile возвращает профиль аутентифицированного пользователя.
func (h *Handler) GetProfile(ctx fiber.Ctx) error {
	requestCtx := ctx.Context()
	log := logger.Log(requestCtx)
	log.Info(requestCtx, LogHandlerProfile)

	username, _ := ctx.Locals(middleware.UsernameKey).(string)
	if username == "" {
		return respondError(ctx, http.StatusUnauthorized, "not authenticated")
	}

	user, err := h.useCase.GetUserByUsername(requestCtx, username)
	if err != nil {
		log.Error(requestCtx, ErrorFailedToServeRequest, zap.Error(err))
		return respondError(ctx, statusFromError(err), err.Error())
	}

	if err := ctx.Status(http.StatusOK).JSON(dto.UserProfileResponse{
		Username: user.Username,
		Email:    user.Email,
	}); err != nil {
		return fmt.Errorf("sending response: %w", err)
	}
	return nil
}

// respondError записывает JSON ошибку с заданным статусом. Возвращает nil,
// если ответ успешно отправлен, чтобы обработчик ошибок fiber не перезаписал статус.
func respondError(ctx fiber.Ctx, status int, message string) error {
	if err := ctx.Status(status).JSON(fiber.Map{"error": message}); err != nil {
		return fmt.Errorf("sending error response: %w", err)
	}
	return nil
}

// statusFromError преобразует доменную ошибку в HTTP статус.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, entities.ErrInvalidUsername),
		errors.Is(err, entities.ErrInvalidEmail):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, entities.ErrInvalidRegistrationToken):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrInvalidCredentials),
		errors.Is(err, entities.ErrInvalidAuthToken):
		return http.StatusUnauthorized
	case errors.Is(err, entities.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
