package codes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgotpw/secretsvc/internal/common"
	"github.com/forgotpw/secretsvc/internal/logging"
	"github.com/forgotpw/secretsvc/internal/server/events"
)

const testUserToken = "fpwtok-0123456789abcdef0123"

// --- fakes ---

type fakeRepo struct {
	rec     *VerificationCode
	findErr error
	saved   *VerificationCode
	saveErr error
}

func (f *fakeRepo) Find(ctx context.Context, normalizedPhone string) (*VerificationCode, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.rec == nil || f.rec.NormalizedPhone != normalizedPhone {
		return nil, common.ErrorNotFound
	}
	return f.rec, nil
}

func (f *fakeRepo) Save(ctx context.Context, code *VerificationCode) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = code
	return nil
}

type fakeResolver struct {
	phone string
	token string
	err   error
}

func (f *fakeResolver) TokenFromPhone(ctx context.Context, phone string) (string, error) {
	return f.token, f.err
}

func (f *fakeResolver) PhoneFromToken(ctx context.Context, userToken string) (string, error) {
	return f.phone, f.err
}

type capturePublisher struct {
	topics   []string
	messages []string
	err      error
}

func (c *capturePublisher) Publish(ctx context.Context, topicARN string, message string) error {
	if c.err != nil {
		return c.err
	}
	c.topics = append(c.topics, topicARN)
	c.messages = append(c.messages, message)
	return nil
}

func newTestService(t *testing.T, repo Repository, resolver *fakeResolver, pub events.Publisher) *Service {
	t.Helper()
	var buf bytes.Buffer
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	em := events.NewEmitter(pub, events.Topics{
		SendCode: "arn:aws:sns:us-east-1:123456789012:fpw-sendcode",
	}, logger)
	return NewService(repo, resolver, em, logger)
}

// --- Validate ---

func TestValidate_MatchingUnexpiredCode(t *testing.T) {
	repo := &fakeRepo{rec: &VerificationCode{
		NormalizedPhone: "+16095551313",
		Code:            "1234",
		ExpireEpoch:     time.Now().Add(5 * time.Minute).Unix(),
	}}
	s := newTestService(t, repo, &fakeResolver{phone: "6095551313"}, &capturePublisher{})

	ok, err := s.Validate(context.Background(), "1234", testUserToken)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestValidate_WrongCode(t *testing.T) {
	repo := &fakeRepo{rec: &VerificationCode{
		NormalizedPhone: "+16095551313",
		Code:            "1234",
		ExpireEpoch:     time.Now().Add(5 * time.Minute).Unix(),
	}}
	s := newTestService(t, repo, &fakeResolver{phone: "6095551313"}, &capturePublisher{})

	ok, err := s.Validate(context.Background(), "9999", testUserToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidate_ExpiredCode(t *testing.T) {
	repo := &fakeRepo{rec: &VerificationCode{
		NormalizedPhone: "+16095551313",
		Code:            "1234",
		ExpireEpoch:     time.Now().Add(-time.Minute).Unix(),
	}}
	s := newTestService(t, repo, &fakeResolver{phone: "6095551313"}, &capturePublisher{})

	ok, err := s.Validate(context.Background(), "1234", testUserToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidate_NoCodeOnRecord(t *testing.T) {
	s := newTestService(t, &fakeRepo{}, &fakeResolver{phone: "6095551313"}, &capturePublisher{})

	ok, err := s.Validate(context.Background(), "1234", testUserToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidate_ResolverFaultIsAnError(t *testing.T) {
	s := newTestService(t, &fakeRepo{}, &fakeResolver{err: errors.New("resolver down")}, &capturePublisher{})

	_, err := s.Validate(context.Background(), "1234", testUserToken)
	require.Error(t, err)
}

func TestValidate_RepositoryFaultIsAnError(t *testing.T) {
	repo := &fakeRepo{findErr: errors.New("db down")}
	s := newTestService(t, repo, &fakeResolver{phone: "6095551313"}, &capturePublisher{})

	_, err := s.Validate(context.Background(), "1234", testUserToken)
	require.Error(t, err)
}

// --- Issue ---

func TestIssue_EmitsSendCodeEvent(t *testing.T) {
	pub := &capturePublisher{}
	s := newTestService(t, &fakeRepo{}, &fakeResolver{}, pub)

	require.NoError(t, s.Issue(context.Background(), testUserToken))
	require.Len(t, pub.messages, 1)

	var ev events.Event
	require.NoError(t, json.Unmarshal([]byte(pub.messages[0]), &ev))
	assert.Equal(t, events.ActionSendCode, ev.Action)
	assert.Equal(t, testUserToken, ev.UserToken)
	assert.Empty(t, ev.Secret)
}

// --- SaveCode ---

func TestSaveCode_NormalizesPhoneAndSetsExpiry(t *testing.T) {
	repo := &fakeRepo{}
	s := newTestService(t, repo, &fakeResolver{}, &capturePublisher{})

	before := time.Now().Add(10 * time.Minute).Unix()
	require.NoError(t, s.SaveCode(context.Background(), "609-555-1313", "1234", 10*time.Minute))
	after := time.Now().Add(10 * time.Minute).Unix()

	require.NotNil(t, repo.saved)
	assert.Equal(t, "+16095551313", repo.saved.NormalizedPhone)
	assert.Equal(t, "1234", repo.saved.Code)
	assert.GreaterOrEqual(t, repo.saved.ExpireEpoch, before)
	assert.LessOrEqual(t, repo.saved.ExpireEpoch, after)
}
