package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrEntitlementDenied = errors.New("selected language is only available for PRO members")
	ErrGenerationFailed  = errors.New("generation failed")
	ErrPersistenceFailed = errors.New("persistence failed")
)
