package grants

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forgotpw/secretsvc/internal/common"
	"github.com/forgotpw/secretsvc/internal/logging"
	"github.com/forgotpw/secretsvc/internal/normalize"
)

// Service resolves and issues grants. Resolution distinguishes "no such
// grant" from "grant expired" internally; the boundary collapses both to a
// 401.
type Service struct {
	store    Store
	validity time.Duration
	logger   logging.Logger
}

func NewService(store Store, validity time.Duration, logger logging.Logger) *Service {
	return &Service{
		store:    store,
		validity: validity,
		logger:   logger.With("module", "grants"),
	}
}

// Resolve fetches a grant and checks its expiry. Returns
// common.ErrorGrantNotFound when no record exists for the id, and
// common.ErrorGrantExpired when the record exists but now > ExpireEpoch.
// Expiry is checked before the grant is handed to any caller, so no action
// is ever taken on an expired grant.
func (s *Service) Resolve(ctx context.Context, aridID string) (*Grant, error) {
	grant, err := s.store.Get(ctx, aridID)
	if err != nil {
		return nil, err
	}

	if now := time.Now().Unix(); now > grant.ExpireEpoch {
		s.logger.Warn(ctx, "request was made for expired grant",
			"arid", aridID, "currentEpoch", now, "expireEpoch", grant.ExpireEpoch)
		return nil, common.ErrorGrantExpired
	}

	return grant, nil
}

// Issue creates and persists a new grant for the user and application,
// valid for the configured duration.
func (s *Service) Issue(ctx context.Context, userToken, rawApplication string, isFirstTime bool) (*Grant, error) {
	raw := strings.TrimSpace(rawApplication)
	grant := &Grant{
		AridID:                uuid.NewString(),
		UserToken:             userToken,
		RawApplication:        raw,
		NormalizedApplication: normalize.Application(raw),
		ExpireEpoch:           time.Now().Add(s.validity).Unix(),
		IsFirstTime:           isFirstTime,
	}

	if err := s.store.Put(ctx, grant); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "issued grant",
		"arid", grant.AridID, "userToken", userToken,
		"application", grant.NormalizedApplication, "expireEpoch", grant.ExpireEpoch)
	return grant, nil
}
