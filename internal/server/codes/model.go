package codes

// VerificationCode is a short-lived numeric code bound to a normalized
// phone number. ExpireEpoch is integer Unix seconds; a code is valid while
// now <= ExpireEpoch.
type VerificationCode struct {
	NormalizedPhone string
	Code            string
	ExpireEpoch     int64
}
