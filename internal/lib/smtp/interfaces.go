// Package smtp реализует почтовый транспорт для воркера доставки
// уведомлений.
package smtp

import "io"

// Client минимальный интерфейс SMTP-клиента, достаточный для отправки
// письма. Выделен, чтобы подменять клиента в тестах.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}
