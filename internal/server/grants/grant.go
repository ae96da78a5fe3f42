// Package grants implements authorized-request grants (ARIDs): time-boxed
// records binding a user token to one application, issued out-of-band and
// validated here before any store or disclosure action.
package grants

// Grant is the authorized-request record read from the authreq bucket.
// Expiry is the only built-in invalidation: once now > ExpireEpoch the grant
// is permanently dead. IsFirstTime is advisory metadata for the caller's UX
// and never affects validation.
type Grant struct {
	AridID                string `json:"aridId"`
	UserToken             string `json:"userToken"`
	RawApplication        string `json:"rawApplication"`
	NormalizedApplication string `json:"normalizedApplication"`
	ExpireEpoch           int64  `json:"expireEpoch"`
	IsFirstTime           bool   `json:"isFirstTime"`
}
