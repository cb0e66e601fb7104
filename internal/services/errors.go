// Package services defines the business logic for accounts, drugs,
// statistics, and the expiry alert sweep. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

// Account-related errors.
var (
	// ErrEmailTaken is returned when registering with an email that already
	// has an account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrUsernameTaken is returned when registering with a username that is
	// already in use.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidCredentials is returned on login when the email is unknown
	// or the password does not match. The two cases are deliberately
	// indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserNotFound indicates that the requested account does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrWeakPassword is returned when a registration password misses the
	// minimum length.
	ErrWeakPassword = errors.New("password must be at least 8 characters")

	// ErrInvalidEmail is returned when a registration email is malformed.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidUsername is returned when a registration username is empty
	// or too long.
	ErrInvalidUsername = errors.New("username must be 1-64 characters")
)

// Drug-related errors.
var (
	// ErrDrugNotFound indicates that the requested drug does not exist or is
	// not accessible to the current user.
	ErrDrugNotFound = errors.New("drug not found")

	// ErrNameRequired is returned when a drug is submitted without a name.
	ErrNameRequired = errors.New("drug name is required")

	// ErrNameTooLong is returned when a drug name exceeds the column bound.
	ErrNameTooLong = errors.New("drug name too long (max 120 characters)")

	// ErrDescriptionTooLong is returned when a description exceeds the
	// column bound.
	ErrDescriptionTooLong = errors.New("description too long (max 500 characters)")

	// ErrInvalidForm is returned when a pharmaceutical form is not in the
	// supported set.
	ErrInvalidForm = errors.New("unknown pharmaceutical form")

	// ErrInvalidExpiration is returned when the expiration (year, month)
	// pair is out of range.
	ErrInvalidExpiration = errors.New("expiration year/month out of range")
)

// Sweep-related errors.
var (
	// ErrSweepRunning is returned when an alert sweep is triggered while a
	// previous pass is still in flight. Overlapping passes are skipped, not
	// queued.
	ErrSweepRunning = errors.New("alert sweep already running")
)
