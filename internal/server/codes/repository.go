package codes

import "context"

// Repository stores at most one active verification code per normalized
// phone number.
type Repository interface {
	// Find returns the stored code for a normalized phone, or
	// common.ErrorNotFound.
	Find(ctx context.Context, normalizedPhone string) (*VerificationCode, error)

	// Save replaces any existing code for the phone with the given one.
	Save(ctx context.Context, code *VerificationCode) error
}
