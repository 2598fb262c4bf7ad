// Package middleware содержит промежуточное ПО для HTTP обработчиков.
package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"megachess/internal/auth/domain/entities"
	"megachess/internal/auth/ports/api"
	"megachess/pkg/logger"
)

// UsernameKey - ключ Locals с именем аутентифицированного пользователя.
const UsernameKey = "username"

// Константы для логирования.
const (
	LogAuthMiddleware = "auth middleware"

	ErrorNoAuthHeader       = "no authorization header provided"
	ErrorInvalidTokenFormat = "invalid token format"
	ErrorInvalidAuthToken   = "invalid auth token"
	ErrorAuthLookupFailed   = "failed to resolve auth token"
)

// NewAuthMiddleware создает промежуточное ПО, которое разрешает bearer-токен
// в имя пользователя и сохраняет его в Locals запроса.
func NewAuthMiddleware(useCase api.UserUseCase) fiber.Handler {
	return func(ctx fiber.Ctx) error {
		requestCtx := ctx.Context()
		log := logger.Log(requestCtx).With(zap.String("middleware", "auth"))
		log.Debug(requestCtx, LogAuthMiddleware)

		authHeader := ctx.Get("Authorization")
		if authHeader == "" {
			log.Debug(requestCtx, ErrorNoAuthHeader)
			return reject(ctx, fiber.StatusUnauthorized, ErrorNoAuthHeader)
		}

		token, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || token == "" {
			log.Debug(requestCtx, ErrorInvalidTokenFormat)
			return reject(ctx, fiber.StatusUnauthorized, ErrorInvalidTokenFormat)
		}

		username, err := useCase.GetUsernameByAuthToken(requestCtx, token)
		if err != nil {
			if errors.Is(err, entities.ErrInvalidAuthToken) {
				log.Debug(requestCtx, ErrorInvalidAuthToken)
				return reject(ctx, fiber.StatusUnauthorized, ErrorInvalidAuthToken)
			}
			log.Error(requestCtx, ErrorAuthLookupFailed, zap.Error(err))
			return reject(ctx, fiber.StatusServiceUnavailable, ErrorAuthLookupFailed)
		}

		ctx.Locals(UsernameKey, username)

		return ctx.Next()
	}
}

// reject записывает JSON отказ с заданным статусом. Возвращает nil,
// если ответ успешно отправлен, чтобы обработчик ошибок fiber не перезаписал статус.
func reject(ctx fiber.Ctx, status int, message string) error {
	if err := ctx.Status(status).JSON(fiber.Map{
		"error": message,
	}); err != nil {
		return fmt.Errorf("%s: %w", message, err)
	}
	return nil
}
