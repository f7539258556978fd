package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	// Wrong password and unknown email map to the same error, so the
	// response does not tell them apart
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Account is deactivated: it may not authenticate or be mutated
	ErrUserInactive = errors.New("user is inactive")

	// Activation state preconditions
	ErrUserAlreadyInactive = errors.New("user is already inactive")
	ErrUserNotInactive     = errors.New("user is not inactive")
	ErrSelfDeactivation    = errors.New("user can not deactivate itself")

	// Session token failures
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token is expired")

	// Refresh failures
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrTokenNotNearExpiry   = errors.New("token is not about to expire")

	// Storage failed transiently, the caller may retry with backoff
	ErrStorageUnavailable = errors.New("storage unavailable")
)
