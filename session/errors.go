package session

import "errors"

var (
	PasswordMismatchErr = errors.New("passwords do not match")
	NotAuthenticatedErr = errors.New("not authenticated")
	SessionExpiredErr   = errors.New("session expired")
	EmailTakenErr       = errors.New("email already registered")
)
