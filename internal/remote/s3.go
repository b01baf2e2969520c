package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/zeebo/blake3"
)

// S3 serves manifest and game files from an S3 (or MinIO) bucket. The
// publisher stores a blake3 content hash in object metadata; FileHash uses
// the same scheme locally.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3(ctx context.Context, bucket, region, prefix, endpoint string, maxRetryAttempts int) (*S3, error) {
	var configOpts []func(*awsconfig.LoadOptions) error
	configOpts = append(configOpts, awsconfig.WithRegion(region))

	if maxRetryAttempts > 0 {
		configOpts = append(configOpts,
			awsconfig.WithRetryMaxAttempts(maxRetryAttempts),
			awsconfig.WithRetryMode(aws.RetryModeStandard),
		)
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if endpoint != "" {
		if accessKey := os.Getenv("AWS_ACCESS_KEY_ID"); accessKey != "" {
			if secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY"); secretKey != "" {
				cfg.Credentials = credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")
			}
		}
	}

	var client *s3.Client
	if endpoint != "" {
		client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
		slog.Info("S3 client initialized with custom endpoint", "endpoint", endpoint)
	} else {
		client = s3.NewFromConfig(cfg)
	}

	return &S3{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (s *S3) key(remotePath string) string {
	return path.Join(s.prefix, remotePath)
}

func (s *S3) List(ctx context.Context, remotePath string) ([]Entry, error) {
	key := s.key(remotePath)

	// Exact key first: file rules point at a single object.
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		entry := Entry{Path: ""}
		if head.ContentLength != nil {
			entry.Size = *head.ContentLength
		}
		entry.Hash = head.Metadata["blake3"]
		return []Entry{entry}, nil
	}
	if cerr := classify(err); !errors.Is(cerr, ErrNotFound) {
		return nil, fmt.Errorf("failed to head %s: %w", key, cerr)
	}

	prefix := key + "/"
	var entries []Entry
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, classify(err))
		}
		for _, obj := range out.Contents {
			rel := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if rel == "" {
				continue // directory marker for the prefix itself
			}
			entry := Entry{Path: rel, IsDir: strings.HasSuffix(rel, "/")}
			entry.Path = strings.TrimSuffix(entry.Path, "/")
			if obj.Size != nil {
				entry.Size = *obj.Size
			}
			if !entry.IsDir {
				entry.Hash = s.objectHash(ctx, aws.ToString(obj.Key))
			}
			entries = append(entries, entry)
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		token = out.NextContinuationToken
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", remotePath, ErrNotFound)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// objectHash reads the publisher-written blake3 metadata. Objects uploaded
// without it simply lose the redundant-write shortcut.
func (s *S3) objectHash(ctx context.Context, key string) string {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Debug("Head failed, skipping content hash", "key", key, "error", err)
		return ""
	}
	return head.Metadata["blake3"]
}

func (s *S3) Fetch(ctx context.Context, remotePath string) (io.ReadCloser, error) {
	key := s.key(remotePath)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, classify(err))
	}
	return out.Body, nil
}

func (s *S3) FileHash(localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

func (s *S3) VerifyCredentials(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to verify bucket access: %w", classify(err))
	}
	return nil
}

// classify folds SDK errors into the provider taxonomy: missing keys are
// permanent, denied access is permanent, everything else is assumed
// transient and retryable.
func classify(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return ErrNotFound
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return ErrDenied
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
