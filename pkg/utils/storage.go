// =============================================================================
// TTD Writer - Output Writers
// =============================================================================
//
// Output files are addressed by URI. A plain path or a file:// URI is
// written to the local disk; an s3://bucket/key URI is buffered in memory
// and uploaded when the writer is closed. S3 settings come from the usual
// AWS environment (AWS_REGION, credentials), plus:
//
//   AWS_ENDPOINT_URL_S3       - alternative endpoint, e.g. MinIO
//   AWS_S3_FORCE_PATH_STYLE   - "true" for path-style addressing
//
// =============================================================================

package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3iface is the part of the S3 client the writers use.
type s3iface interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// newS3Client constructs an S3 client; tests replace it.
var newS3Client = func(ctx context.Context) (s3iface, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if ep := os.Getenv("AWS_ENDPOINT_URL_S3"); ep != "" {
			o.BaseEndpoint = aws.String(ep)
		}
		if strings.EqualFold(os.Getenv("AWS_S3_FORCE_PATH_STYLE"), "true") {
			o.UsePathStyle = true
		}
	}), nil
}

// CreateWriter opens uri for writing, creating parent directories of local
// paths. The caller must Close the writer; for S3 the upload happens then.
func CreateWriter(ctx context.Context, uri string) (io.WriteCloser, error) {
	if !IsRemote(uri) {
		return createFile(strings.TrimPrefix(uri, "file://"))
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid output uri %q: %w", uri, err)
	}
	if u.Scheme != "s3" {
		return nil, fmt.Errorf("unsupported scheme for output %q: %s", uri, u.Scheme)
	}
	bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("invalid s3 uri %q", uri)
	}
	return &s3Writer{ctx: ctx, bucket: bucket, key: key}, nil
}

func createFile(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, nil
}

// s3Writer buffers everything written and uploads it once on Close.
type s3Writer struct {
	ctx    context.Context
	bucket string
	key    string
	buf    bytes.Buffer
	closed bool
}

func (w *s3Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("write to closed s3 object s3://%s/%s", w.bucket, w.key)
	}
	return w.buf.Write(p)
}

func (w *s3Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	cl, err := newS3Client(w.ctx)
	if err != nil {
		return fmt.Errorf("s3 client: %w", err)
	}
	_, err = cl.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(w.key),
		Body:   bytes.NewReader(w.buf.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", w.bucket, w.key, err)
	}
	return nil
}
