// Package sl содержит вспомогательные функции для формирования атрибутов slog.
package sl

import "log/slog"

// Err возвращает атрибут "error" с текстом ошибки.
//
// Пример:
//
//	log.Error("failed to do something", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// UserID возвращает атрибут "user_id".
func UserID(id string) slog.Attr {
	return slog.String("user_id", id)
}

// Feature возвращает атрибут "feature".
func Feature(name string) slog.Attr {
	return slog.String("feature", name)
}
