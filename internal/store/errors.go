package store

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrSessionNotFound    = errors.New("session not found")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrStoreNotFound      = errors.New("store not found")
	ErrStoreExists        = errors.New("owner already has a store")
	ErrProductNotFound    = errors.New("product not found")
	ErrInvalidRole        = errors.New("invalid role")
)
