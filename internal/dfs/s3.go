package dfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/arkilian/readbench/pkg/types"
)

// ErrObjectNotFound is returned when the requested key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// S3FileSystem reads objects from an S3-compatible store through ranged GETs.
// It has no notion of block locality, so only total bytes are counted and
// zero-copy reads are not supported.
type S3FileSystem struct {
	client     *s3.Client
	bucket     string
	maxRetries int
	closed     atomic.Bool
}

// S3Config holds configuration for the S3 driver.
type S3Config struct {
	// Region is the AWS region for the bucket.
	Region string
	// Endpoint is an optional custom endpoint (for MinIO, LocalStack, etc.).
	Endpoint string
	// UsePathStyle enables path-style addressing (required for MinIO).
	UsePathStyle bool
}

func connectS3(ctx context.Context, opts Options) (FileSystem, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 driver requires a bucket")
	}

	endpoint := opts.Endpoint()
	if endpoint != "" && !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}

	return NewS3FileSystem(ctx, opts.Bucket, S3Config{
		Region:       opts.Region,
		Endpoint:     endpoint,
		UsePathStyle: opts.UsePathStyle,
	})
}

// NewS3FileSystem creates a client for bucket using the default AWS
// credential chain.
func NewS3FileSystem(ctx context.Context, bucket string, cfg S3Config) (*S3FileSystem, error) {
	var opts []func(*config.LoadOptions) error

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts = append(opts, config.WithRegion(region))

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return NewS3FileSystemWithClient(s3.NewFromConfig(awsCfg, s3Opts...), bucket), nil
}

// NewS3FileSystemWithClient creates a filesystem over a pre-configured client.
func NewS3FileSystemWithClient(client *s3.Client, bucket string) *S3FileSystem {
	return &S3FileSystem{
		client:     client,
		bucket:     bucket,
		maxRetries: 3,
	}
}

// PathInfo issues a HEAD request for the object.
func (s *S3FileSystem) PathInfo(ctx context.Context, path string) (FileInfo, error) {
	if s.closed.Load() {
		return FileInfo{}, ErrClosed
	}

	key := objectKey(path)
	var resp *s3.HeadObjectOutput
	err := s.retryWithBackoff(ctx, func() error {
		var headErr error
		resp, headErr = s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if headErr != nil {
			var notFound *s3types.NotFound
			if errors.As(headErr, &notFound) {
				return ErrObjectNotFound
			}
		}
		return headErr
	})
	if err != nil {
		return FileInfo{}, fmt.Errorf("head %s/%s: %w", s.bucket, key, err)
	}

	return FileInfo{
		Path:    path,
		Size:    aws.ToInt64(resp.ContentLength),
		ModTime: aws.ToTime(resp.LastModified),
	}, nil
}

// OpenFile resolves the object size and returns a handle. No data is
// transferred until the first read. ctx bounds every request made through
// the handle.
func (s *S3FileSystem) OpenFile(ctx context.Context, path string, bufferSize int) (File, error) {
	info, err := s.PathInfo(ctx, path)
	if err != nil {
		return nil, err
	}
	return &s3File{
		fs:   s,
		ctx:  ctx,
		key:  objectKey(path),
		size: info.Size,
	}, nil
}

// Close marks the filesystem closed.
func (s *S3FileSystem) Close() error {
	s.closed.Store(true)
	return nil
}

// retryWithBackoff executes the operation with exponential backoff retry.
func (s *S3FileSystem) retryWithBackoff(ctx context.Context, operation func() error) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation()
		if lastErr == nil {
			return nil
		}

		if errors.Is(lastErr, ErrObjectNotFound) {
			return lastErr
		}

		if attempt < s.maxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * 100 * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}

func objectKey(path string) string {
	return strings.TrimPrefix(path, "/")
}

type s3File struct {
	fs   *S3FileSystem
	ctx  context.Context
	key  string
	size int64

	pos int64

	total  atomic.Int64
	closed atomic.Bool
}

func (f *s3File) Read(p []byte) (int, error) {
	n, err := f.Pread(f.pos, p)
	f.pos += int64(n)
	return n, err
}

func (f *s3File) Seek(offset int64) error {
	if f.closed.Load() {
		return ErrClosed
	}
	if offset < 0 {
		return fmt.Errorf("negative seek offset %d", offset)
	}
	f.pos = offset
	return nil
}

// Pread fetches [offset, offset+len(p)) with a ranged GET.
func (f *s3File) Pread(offset int64, p []byte) (int, error) {
	if f.closed.Load() {
		return 0, ErrClosed
	}
	if offset >= f.size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	end := offset + int64(len(p))
	if end > f.size {
		end = f.size
	}
	want := p[:end-offset]

	var n int
	err := f.fs.retryWithBackoff(f.ctx, func() error {
		resp, getErr := f.fs.client.GetObject(f.ctx, &s3.GetObjectInput{
			Bucket: aws.String(f.fs.bucket),
			Key:    aws.String(f.key),
			Range:  aws.String(fmt.Sprintf("bytes=%d-%d", offset, end-1)),
		})
		if getErr != nil {
			var noSuchKey *s3types.NoSuchKey
			if errors.As(getErr, &noSuchKey) {
				return ErrObjectNotFound
			}
			return getErr
		}
		defer resp.Body.Close()

		n, getErr = io.ReadFull(resp.Body, want)
		return getErr
	})
	if err != nil {
		return 0, fmt.Errorf("ranged get %s [%d, %d): %w", f.key, offset, end, err)
	}

	f.total.Add(int64(n))
	return n, nil
}

func (f *s3File) ReadZero(maxLen int) (ZeroCopyBuffer, error) {
	return nil, ErrNotSupported
}

func (f *s3File) ReadStatistics() types.ReadStats {
	return types.ReadStats{TotalBytes: f.total.Load()}
}

func (f *s3File) Close() error {
	f.closed.Store(true)
	return nil
}
