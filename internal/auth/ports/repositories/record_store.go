// Package repositories определяет интерфейсы хранилища записей.
package repositories

import (
	"context"
	"errors"
	"time"
)

// ErrRecordNotFound возвращается Get, когда ключ отсутствует в хранилище.
var ErrRecordNotFound = errors.New("record not found")

// RecordStore определяет контракт внешнего key-value хранилища.
// Реализация обязана обеспечивать атомарность на уровне отдельного ключа.
type RecordStore interface {
	// Set сохраняет значение по ключу без срока жизни.
	Set(ctx context.Context, key, value string) error

	// SetWithTTL сохраняет значение по ключу со сроком жизни.
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error

	// SetIfAbsent атомарно сохраняет значение, только если ключ отсутствует.
	// Возвращает true, если запись была создана.
	SetIfAbsent(ctx context.Context, key, value string) (bool, error)

	// Get возвращает значение по ключу либо ErrRecordNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Exists сообщает, существует ли ключ.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete атомарно удаляет ключ и сообщает, существовал ли он.
	Delete(ctx context.Context, key string) (bool, error)

	Close() error
}
