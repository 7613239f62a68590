package repository

import "errors"

var (
	ErrNotFound       = errors.New("record not found")
	ErrAlreadyDecided = errors.New("absence request already decided")
)
