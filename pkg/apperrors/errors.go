package apperrors

import "errors"

var (
	ErrSchemaUnavailable = errors.New("schema unavailable")
	ErrConnectionLost    = errors.New("database connection lost")
	ErrQuestionRejected  = errors.New("question rejected")
)
