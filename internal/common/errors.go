// Package common defines shared constants and sentinel errors used across
// the service layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Boundary taxonomy.
	ErrorValidation        = errors.New("validation error")
	ErrorCredentialInvalid = errors.New("credential invalid")

	// Grant lifecycle errors. Kept distinct internally for logging; both
	// collapse to ErrorCredentialInvalid at the HTTP boundary.
	ErrorGrantNotFound = errors.New("grant not found")
	ErrorGrantExpired  = errors.New("grant expired")

	// Event pipeline errors. A message that fails schema validation is never
	// published; a publish fault is a separate, retryable condition.
	ErrorMessageInvalid = errors.New("message invalid")
	ErrorPublish        = errors.New("publish error")

	// External store errors.
	ErrorStoreRead  = errors.New("store read error")
	ErrorStoreParse = errors.New("store parse error")

	// Deployment configuration errors.
	ErrorConfiguration = errors.New("configuration fault")
)
