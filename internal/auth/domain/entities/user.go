// Package entities содержит основные сущности домена учетных записей.
package entities

import (
	"errors"
	"fmt"
)

// Ошибки домена регистрации и аутентификации.
var (
	ErrInvalidUsername          = errors.New("username may contain letters only")
	ErrInvalidEmail             = errors.New("invalid email format")
	ErrUserAlreadyExists        = errors.New("user already exists")
	ErrInvalidRegistrationToken = errors.New("invalid registration token")
	ErrInvalidCredentials       = errors.New("invalid username or password")
	ErrInvalidAuthToken         = errors.New("invalid auth token")
	ErrStoreUnavailable         = errors.New("record store unavailable")

	// ErrCorruptedRecord - разновидность ошибки аутентификации: прочитанная
	// запись не соответствует ключу поиска или не декодируется.
	ErrCorruptedRecord = fmt.Errorf("%w: stored record is corrupted", ErrInvalidCredentials)
)

// User представляет подтвержденную учетную запись.
// AuthToken выдается один раз при создании и больше не изменяется.
type User struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	AuthToken    string `json:"auth_token"`
}

// PendingRegistration представляет неподтвержденную заявку на регистрацию.
// Запись живет в хранилище до подтверждения или истечения срока хранения.
type PendingRegistration struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
}
