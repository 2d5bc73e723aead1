// Package common defines shared constants and sentinel errors used across
// dbkeeper components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Vault errors. Wrong passphrase and corrupted or tampered envelopes are
	// reported through the same value.
	ErrAuth        = errors.New("authentication failed")
	ErrVaultLocked = errors.New("vault is locked")
	ErrVaultExists = errors.New("vault already exists")

	// Config store errors.
	ErrNotFound = errors.New("not found")
	ErrConfigIO = errors.New("config i/o error")

	// Container daemon errors.
	ErrDaemonUnavailable     = errors.New("container daemon unavailable")
	ErrImagePullFailed       = errors.New("image pull failed")
	ErrContainerCreateFailed = errors.New("container create failed")
	ErrHealthCheckTimeout    = errors.New("health check timeout")

	// Request errors.
	ErrRecordNotFound = errors.New("record not found")
	ErrValidation     = errors.New("validation error")
	ErrUnknownKind    = errors.New("unknown database kind")
)
