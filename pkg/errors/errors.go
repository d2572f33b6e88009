package errors

import "errors"

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrAdvertisementNotFound = errors.New("advertisement not found")
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrDescriptionNotFound   = errors.New("description not found")

	ErrInvalidAmount = errors.New("amount must be positive")
	ErrInvalidStatus = errors.New("invalid status, use 'Completed' or 'Failed'")

	ErrTransactionSettled = errors.New("transaction already settled")
	ErrInsufficientFunds  = errors.New("insufficient funds")

	ErrEmailExists        = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrNotOwner           = errors.New("advertisement belongs to another user")

	ErrInvalidInput   = errors.New("email and password are required")
	ErrNilTransaction = errors.New("transaction is nil")
	ErrInternal       = errors.New("internal error")
)
