package service

import (
	"errors"

	"timetracker-bot/internal/repository"
)

var (
	// ErrForbidden - у пользователя нет роли для действия.
	ErrForbidden = errors.New("forbidden")
	// ErrAlreadyDecided - по заявке уже есть решение.
	ErrAlreadyDecided = repository.ErrAlreadyDecided
	ErrNotFound       = repository.ErrNotFound
)
