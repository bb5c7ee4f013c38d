package repositories

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrNotMember            = errors.New("not a conversation member")
	ErrForbidden            = errors.New("forbidden")
	ErrValidation           = errors.New("invalid input")
)
