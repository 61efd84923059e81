package devapi

import "errors"

var (
	ErrUserExists        = errors.New("user already exists")
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)
