package user

import "errors"

var (
	ErrNotFound             = errors.New("user not found")
	ErrUsernameOrEmailTaken = errors.New("username or email already exists")
)
