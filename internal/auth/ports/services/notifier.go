package services

import "context"

// Notifier определяет контракт внешней доставки уведомлений.
// Доставка выполняется по принципу fire-and-forget: вызывающая сторона
// не должна превращать ошибку отправки в ошибку своей операции.
type Notifier interface {
	Send(ctx context.Context, address, subject, body string) error
}
