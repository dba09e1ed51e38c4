package utils

import "errors"

var (
	ErrorRecordNotFound     = errors.New("record not found")
	ErrorInvalidCredentials = errors.New("invalid username or password")
	ErrorUsernameTaken      = errors.New("username already exists")
	ErrorInvalidEmail       = errors.New("invalid email address")
	ErrorInvalidPhone       = errors.New("invalid contact number")
)
