package codes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forgotpw/secretsvc/internal/common"
	"github.com/forgotpw/secretsvc/internal/logging"
	"github.com/forgotpw/secretsvc/internal/normalize"
	"github.com/forgotpw/secretsvc/internal/server/events"
	"github.com/forgotpw/secretsvc/internal/server/identity"
)

// Service issues send-code events and validates presented codes.
type Service struct {
	repo     Repository
	resolver identity.Resolver
	emitter  *events.Emitter
	logger   logging.Logger
}

func NewService(repo Repository, resolver identity.Resolver, emitter *events.Emitter, logger logging.Logger) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		emitter:  emitter,
		logger:   logger.With("module", "codes"),
	}
}

// Issue emits a sendCode event for the user. Code generation and delivery
// happen downstream of the event pipeline.
func (s *Service) Issue(ctx context.Context, userToken string) error {
	s.logger.Info(ctx, "publishing send code event", "userToken", userToken)
	return s.emitter.Emit(ctx, events.NewSendCodeEvent(userToken))
}

// Validate reports whether code matches the active verification code for the
// user's phone and has not expired. Not-found, mismatch and expired all
// return false with no distinction, so a caller probing codes learns nothing
// about which condition it hit. The error return is reserved for
// infrastructure faults (resolver or repository).
func (s *Service) Validate(ctx context.Context, code string, userToken string) (bool, error) {
	phone, err := s.resolver.PhoneFromToken(ctx, userToken)
	if err != nil {
		return false, fmt.Errorf("resolving phone for token: %w", err)
	}

	rec, err := s.repo.Find(ctx, normalize.Phone(phone))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "no verification code on record", "userToken", userToken)
			return false, nil
		}
		return false, fmt.Errorf("loading verification code: %w", err)
	}

	if rec.Code != code {
		s.logger.Warn(ctx, "verification code mismatch", "userToken", userToken)
		return false, nil
	}

	if time.Now().Unix() > rec.ExpireEpoch {
		s.logger.Warn(ctx, "verification code expired",
			"userToken", userToken, "expireEpoch", rec.ExpireEpoch)
		return false, nil
	}

	return true, nil
}

// SaveCode records a freshly generated code for a phone number, replacing
// any previous one. Used by the code-generation consumer and by tests.
func (s *Service) SaveCode(ctx context.Context, phone, code string, validity time.Duration) error {
	vc := &VerificationCode{
		NormalizedPhone: normalize.Phone(phone),
		Code:            code,
		ExpireEpoch:     time.Now().Add(validity).Unix(),
	}
	if err := s.repo.Save(ctx, vc); err != nil {
		return fmt.Errorf("saving verification code: %w", err)
	}
	return nil
}
