// Package secrets implements the per-user encrypted secret store. Writes go
// through the event pipeline (eventual durability, applied by a downstream
// consumer); reads are synchronous SSE-C object fetches, since the caller
// needs the secret in the same response.
package secrets

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/crypto/hkdf"

	"github.com/forgotpw/secretsvc/internal/common"
	"github.com/forgotpw/secretsvc/internal/logging"
	"github.com/forgotpw/secretsvc/internal/server/events"
	"github.com/forgotpw/secretsvc/internal/server/grants"
)

// Record is the decrypted secret object stored per (userToken,
// normalizedApplication).
type Record struct {
	Secret         string `json:"secret"`
	RawApplication string `json:"rawApplication"`
}

// ssecKeySize is what S3 SSE-C with AES256 requires.
const ssecKeySize = 32

// hkdfInfo domain-separates the userdata key from any other use of the same
// key material.
const hkdfInfo = "fpw-userdata-ssec"

// ObjectGetter is the slice of the S3 client the read path needs.
// Satisfied by *s3.Client; tests substitute fakes.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Service reads encrypted secret records and routes store requests into the
// event pipeline.
type Service struct {
	client      ObjectGetter
	bucket      string
	keyMaterial string
	ssecKey     []byte
	emitter     *events.Emitter
	grants      *grants.Service
	logger      logging.Logger
}

func NewService(client ObjectGetter, bucket, ssecKeyMaterial string, emitter *events.Emitter, grantSvc *grants.Service, logger logging.Logger) *Service {
	s := &Service{
		client:      client,
		bucket:      bucket,
		keyMaterial: ssecKeyMaterial,
		emitter:     emitter,
		grants:      grantSvc,
		logger:      logger.With("module", "secrets"),
	}
	if len(ssecKeyMaterial) >= ssecKeySize {
		s.ssecKey = deriveSSECKey(ssecKeyMaterial)
	}
	return s
}

// deriveSSECKey expands the configured key material into the exact 32-byte
// key SSE-C requires.
func deriveSSECKey(material string) []byte {
	key := make([]byte, ssecKeySize)
	r := hkdf.New(sha256.New, []byte(material), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		// hkdf with sha256 cannot fail for a 32-byte read
		panic(err)
	}
	return key
}

func objectKey(normalizedApplication, userToken string) string {
	return "users/" + userToken + "/data/" + normalizedApplication + ".json"
}

// Store validates and hands the secret to the event pipeline as a store
// event. Nothing is written synchronously; a downstream consumer applies the
// encrypted write. Validation failures surface as common.ErrorMessageInvalid
// and nothing is emitted.
func (s *Service) Store(ctx context.Context, secret, rawApplication, userToken string) error {
	s.logger.Info(ctx, "publishing store secret event", "userToken", userToken)
	return s.emitter.Emit(ctx, events.NewStoreEvent(secret, rawApplication, userToken))
}

// StoreFromGrant resolves the grant and stores against its bound user and
// application. The expiry check happens inside Resolve, before any emission.
func (s *Service) StoreFromGrant(ctx context.Context, aridID, secret string) error {
	grant, err := s.grants.Resolve(ctx, aridID)
	if err != nil {
		return err
	}
	return s.Store(ctx, secret, grant.RawApplication, grant.UserToken)
}

// Retrieve reads and decrypts the secret record for (userToken,
// normalizedApplication) via SSE-C. A key shorter than 32 bytes is a
// deployment fault: logged as an error, this request fails, other requests
// proceed.
func (s *Service) Retrieve(ctx context.Context, normalizedApplication, userToken string) (*Record, error) {
	if len(s.keyMaterial) < ssecKeySize {
		s.logger.Error(ctx, "userdata SSE-C encryption key missing or too short")
		return nil, fmt.Errorf("%w: userdata SSE-C key must be at least %d bytes", common.ErrorConfiguration, ssecKeySize)
	}

	key := objectKey(normalizedApplication, userToken)

	keyB64 := base64.StdEncoding.EncodeToString(s.ssecKey)
	keySum := md5.Sum(s.ssecKey)
	keyMD5 := base64.StdEncoding.EncodeToString(keySum[:])

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		SSECustomerAlgorithm: aws.String("AES256"),
		SSECustomerKey:       aws.String(keyB64),
		SSECustomerKeyMD5:    aws.String(keyMD5),
	})
	if err != nil {
		s.logger.Error(ctx, "error reading secret object", "bucket", s.bucket, "key", key, "error", err.Error())
		return nil, fmt.Errorf("%w: reading s3://%s/%s: %v", common.ErrorStoreRead, s.bucket, key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading s3://%s/%s: %v", common.ErrorStoreRead, s.bucket, key, err)
	}

	rec := &Record{}
	if err := json.Unmarshal(body, rec); err != nil {
		s.logger.Error(ctx, "error parsing secret object", "bucket", s.bucket, "key", key)
		return nil, fmt.Errorf("%w: parsing s3://%s/%s", common.ErrorStoreParse, s.bucket, key)
	}
	if rec.Secret == "" {
		s.logger.Error(ctx, "secret object missing secret field", "bucket", s.bucket, "key", key)
		return nil, fmt.Errorf("%w: s3://%s/%s has no secret field", common.ErrorStoreParse, s.bucket, key)
	}

	s.logger.Debug(ctx, "retrieved secret",
		"bucket", s.bucket, "key", key, "secretChars", len(rec.Secret))
	return rec, nil
}

// Disclose publishes a retrieve event and returns the secret record. The
// event goes out first so downstream consumers see every disclosure attempt,
// matching the fire-and-forget notification semantics of the pipeline.
func (s *Service) Disclose(ctx context.Context, normalizedApplication, rawApplication, userToken string) (*Record, error) {
	if err := s.emitter.Emit(ctx, events.NewRetrieveEvent(rawApplication, userToken)); err != nil {
		return nil, err
	}
	return s.Retrieve(ctx, normalizedApplication, userToken)
}

// RetrieveFromGrant resolves the grant, then discloses the secret it is
// bound to. The grant is returned as well so the caller can surface its
// advisory metadata (IsFirstTime).
func (s *Service) RetrieveFromGrant(ctx context.Context, aridID string) (*Record, *grants.Grant, error) {
	grant, err := s.grants.Resolve(ctx, aridID)
	if err != nil {
		return nil, nil, err
	}

	rec, err := s.Disclose(ctx, grant.NormalizedApplication, grant.RawApplication, grant.UserToken)
	if err != nil {
		return nil, nil, err
	}
	return rec, grant, nil
}
