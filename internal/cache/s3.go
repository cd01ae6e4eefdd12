package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// S3Tier is an optional third cache tier for deployments that want the
// transformation cache to survive process restarts across a fleet of
// proxy instances, mirroring the oci-pull-through proxy's S3Store —
// generalized from OCI blob keys to transformation cache keys, and from
// bucket-lifecycle blob expiry to the same per-prefix policy applied to
// cached transformations.
type S3Tier struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	prefix        string
}

// NewS3Tier builds an S3Tier using the standard AWS SDK default
// credential chain.
func NewS3Tier(ctx context.Context, bucket, prefix string, forcePathStyle bool) (*S3Tier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("cache: loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = forcePathStyle
	})

	if prefix != "" {
		prefix = strings.TrimSuffix(prefix, "/") + "/"
	}

	return &S3Tier{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        bucket,
		prefix:        prefix,
	}, nil
}

func (s *S3Tier) fullKey(key string) string { return s.prefix + key }
func (s *S3Tier) metaKey(key string) string { return s.fullKey(key) + ".meta.json" }

func (s *S3Tier) Get(ctx context.Context, key string) (*Entry, error) {
	metaOut, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.metaKey(key)),
	})
	if err != nil {
		return nil, ErrNotFound
	}
	metaBytes, err := readAllAndClose(metaOut.Body)
	if err != nil {
		return nil, ErrNotFound
	}
	contentType := string(metaBytes)

	dataOut, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil {
		return nil, ErrNotFound
	}
	body, err := readAllAndClose(dataOut.Body)
	if err != nil {
		return nil, ErrNotFound
	}

	return &Entry{ContentType: contentType, Body: body}, nil
}

// Put writes the data object with a conditional PUT: transformation
// cache keys are content-addressed, so a conflict means another writer
// already stored byte-identical content and is treated as success, same
// as the oci-pull-through proxy's blob uploads.
func (s *S3Tier) Put(ctx context.Context, key string, entry Entry) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.fullKey(key)),
		Body:        bytes.NewReader(entry.Body),
		IfNoneMatch: aws.String("*"),
	}
	_, err := s.client.PutObject(ctx, input,
		s3.WithAPIOptions(func(stack *middleware.Stack) error {
			return v4.SwapComputePayloadSHA256ForUnsignedPayloadMiddleware(stack)
		}),
	)
	if err != nil {
		if isConditionalPutConflict(err) {
			slog.Debug("transformation already cached, skipping duplicate upload", "key", key)
			return nil
		}
		return fmt.Errorf("cache: putting entry to S3: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.metaKey(key)),
		Body:        strings.NewReader(entry.ContentType),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return fmt.Errorf("cache: putting meta sidecar to S3: %w", err)
	}
	return nil
}

func (s *S3Tier) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.metaKey(key)),
	})
	return err
}

// RedirectURL presigns a GetObject so the proxy can redirect a client
// straight to S3 instead of streaming cached bytes through itself.
func (s *S3Tier) RedirectURL(ctx context.Context, key string) (string, Entry, error) {
	entry, err := s.Get(ctx, key)
	if err != nil {
		return "", Entry{}, err
	}
	presigned, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", Entry{}, fmt.Errorf("cache: presigning GetObject: %w", err)
	}
	return presigned.URL, *entry, nil
}

func isConditionalPutConflict(err error) bool {
	var re *smithyhttp.ResponseError
	if errors.As(err, &re) {
		return re.HTTPStatusCode() == http.StatusPreconditionFailed ||
			re.HTTPStatusCode() == http.StatusConflict
	}
	return false
}
