package storage

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("user already exists")
	ErrInvalidUser          = errors.New("user fields rejected by storage")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrTokenNotFound        = errors.New("token not found")
)
