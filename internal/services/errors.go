// Package services defines the business logic for local accounts and their
// profile identity fields. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

// Account-related errors.
var (
	// ErrAccountNotFound indicates that no local account exists for the nickname.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists is returned when registering a nickname already in use.
	ErrAccountExists = errors.New("account already exists")

	// ErrInvalidNickname is returned for nicknames outside [a-z0-9_] or too long.
	ErrInvalidNickname = errors.New("nickname must be 1-30 characters of a-z, 0-9 or _")

	// ErrInvalidPublicKey is returned when the account key is not an RSA PEM.
	ErrInvalidPublicKey = errors.New("public key must be an RSA public key in PEM form")

	// ErrEndpointWrite is returned when the webfinger document cannot be stored.
	ErrEndpointWrite = errors.New("cannot store webfinger endpoint")
)

// Profile-related errors.
var (
	// ErrUnknownProtocol is returned for identity field keys with no descriptor.
	ErrUnknownProtocol = errors.New("unknown identity protocol")

	// ErrInvalidPGPKey is returned when an uploaded key cannot be parsed.
	ErrInvalidPGPKey = errors.New("not a valid PGP public key")

	// ErrNoPGPKey is returned when encrypting for an account without a key.
	ErrNoPGPKey = errors.New("account has no PGP public key")
)
