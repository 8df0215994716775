package domain

import "errors"

var (
	// ErrNotFound также возвращается для неактивных ссылок, чтобы не раскрывать их существование
	ErrNotFound          = errors.New("not found")
	ErrExpired           = errors.New("share link has expired")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrPasswordRequired  = &unauthorizedError{msg: "password required"}
	ErrPasswordIncorrect = &unauthorizedError{msg: "incorrect password"}
	ErrForbidden         = errors.New("not authorized")
	ErrValidation        = errors.New("validation failed")
)

type unauthorizedError struct {
	msg string
}

func (e *unauthorizedError) Error() string { return e.msg }

func (e *unauthorizedError) Is(target error) bool { return target == ErrUnauthorized }
