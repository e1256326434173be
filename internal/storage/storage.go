// Package storage определяет ошибки уровня хранилища, общие для всех реализаций.
package storage

import "errors"

var (
	// ErrNotFound запись не найдена.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists запись с таким уникальным ключом уже есть.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrInsufficientCredits на балансе меньше кредитов, чем требуется.
	ErrInsufficientCredits = errors.New("insufficient credits")
)
