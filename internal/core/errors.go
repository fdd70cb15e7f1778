package core

import "errors"

var (
	ErrNotFound            = errors.New("user not found")
	ErrBadCreds            = errors.New("bad credentials")
	ErrEmailTaken          = errors.New("email already registered")
	ErrPendingApproval     = errors.New("account pending approval")
	ErrInvalidRole         = errors.New("invalid role")
	ErrProfileMismatch     = errors.New("profile does not match role")
	ErrRoleNotRegisterable = errors.New("role cannot self-register")
)
