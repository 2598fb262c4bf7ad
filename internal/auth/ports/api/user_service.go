// Package api определяет интерфейсы сценариев использования сервиса учетных записей.
package api

import (
	"context"

	"megachess/internal/auth/domain/entities"
)

// UserUseCase определяет операции регистрации и аутентификации.
type UserUseCase interface {
	// ValidateRegistration проверяет имя пользователя, email и отсутствие
	// подтвержденной учетной записи. Не имеет побочных эффектов.
	ValidateRegistration(ctx context.Context, username, email string) error

	// Register создает заявку на регистрацию и отправляет письмо с
	// подтверждением. При совпадении autoRegisterSecret с настроенным
	// секретом учетная запись создается сразу, без стадии подтверждения.
	Register(ctx context.Context, username, password, email, autoRegisterSecret string) error

	// ConfirmRegistration обменивает одноразовый регистрационный токен
	// на подтвержденную учетную запись.
	ConfirmRegistration(ctx context.Context, registrationToken string) error

	// GetAuthToken возвращает бессрочный auth-токен пользователя
	// после проверки пароля.
	GetAuthToken(ctx context.Context, username, password string) (string, error)

	// GetUsernameByAuthToken возвращает имя пользователя, связанное с токеном.
	GetUsernameByAuthToken(ctx context.Context, authToken string) (string, error)

	// GetUserByUsername возвращает полную запись пользователя.
	GetUserByUsername(ctx context.Context, username string) (*entities.User, error)
}
