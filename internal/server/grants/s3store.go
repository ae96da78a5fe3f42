package grants

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/forgotpw/secretsvc/internal/common"
	"github.com/forgotpw/secretsvc/internal/logging"
)

// Store reads and writes grant records. Satisfied by S3Store; tests
// substitute fakes.
type Store interface {
	// Get returns the grant for an ARID, or common.ErrorGrantNotFound.
	Get(ctx context.Context, aridID string) (*Grant, error)

	// Put persists a freshly issued grant.
	Put(ctx context.Context, grant *Grant) error
}

// s3API is the slice of the S3 client the grant store needs.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store keeps grant records as JSON objects under arid/<id> in the
// authreq bucket.
type S3Store struct {
	client s3API
	bucket string
	logger logging.Logger
}

func NewS3Store(client *s3.Client, bucket string, logger logging.Logger) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		logger: logger.With("module", "grants"),
	}
}

func aridKey(aridID string) string {
	return "arid/" + aridID
}

func (s *S3Store) Get(ctx context.Context, aridID string) (*Grant, error) {
	key := aridKey(aridID)

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			s.logger.Debug(ctx, "grant key not found", "bucket", s.bucket, "key", key)
			return nil, common.ErrorGrantNotFound
		}
		s.logger.Error(ctx, "error reading grant object", "bucket", s.bucket, "key", key, "error", err.Error())
		return nil, fmt.Errorf("%w: reading s3://%s/%s: %v", common.ErrorStoreRead, s.bucket, key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading s3://%s/%s: %v", common.ErrorStoreRead, s.bucket, key, err)
	}

	grant := &Grant{}
	if err := json.Unmarshal(body, grant); err != nil {
		s.logger.Error(ctx, "error parsing grant object", "bucket", s.bucket, "key", key)
		return nil, fmt.Errorf("%w: parsing s3://%s/%s", common.ErrorStoreParse, s.bucket, key)
	}
	if grant.AridID == "" {
		grant.AridID = aridID
	}

	s.logger.Debug(ctx, "read grant", "bucket", s.bucket, "key", key)
	return grant, nil
}

func (s *S3Store) Put(ctx context.Context, grant *Grant) error {
	key := aridKey(grant.AridID)

	body, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("marshalling grant: %w", err)
	}

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}); err != nil {
		s.logger.Error(ctx, "error writing grant object", "bucket", s.bucket, "key", key, "error", err.Error())
		return fmt.Errorf("writing s3://%s/%s: %w", s.bucket, key, err)
	}

	s.logger.Debug(ctx, "wrote grant", "bucket", s.bucket, "key", key)
	return nil
}
