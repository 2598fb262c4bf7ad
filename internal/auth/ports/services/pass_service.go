// Package services определяет интерфейсы вспомогательных сервисов домена.
package services

import "context"

// PasswordService определяет операции одностороннего хеширования пароля.
type PasswordService interface {
	Hash(ctx context.Context, password string) (string, error)

	Verify(ctx context.Context, password, hash string) (bool, error)
}
