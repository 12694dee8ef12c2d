package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"datalocker/internal/locker"
)

// Environment variables for static S3 credentials. When either is unset the
// default AWS credential chain (env, shared config, instance role) applies.
const (
	EnvS3AccessKey = "DATALOCKER_S3_ACCESS_KEY"
	EnvS3SecretKey = "DATALOCKER_S3_SECRET_KEY"
)

// versionMetadataKey is the S3 user-metadata key carrying the snapshot
// version. S3 lowercases metadata keys, so it is declared lowercase.
const versionMetadataKey = "snapshot-version"

// S3Vault is an S3-backed implementation of the Vault interface.
// It stores sealed snapshots under:
//
//	<prefix>/snapshots/<hostID>.db.age
//
// The snapshot version travels as object metadata, so reading it costs a
// HEAD request rather than a download.
type S3Vault struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Vault creates an S3 vault for the given bucket. region and endpoint
// may be empty, in which case the AWS defaults apply. A non-empty endpoint
// switches the client to path-style addressing for self-hosted servers.
func NewS3Vault(ctx context.Context, bucket, prefix, region, endpoint string) (*S3Vault, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if access, secret := os.Getenv(EnvS3AccessKey), os.Getenv(EnvS3SecretKey); access != "" && secret != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(access, secret, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Vault{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   prefix,
	}, nil
}

func (v *S3Vault) snapshotKey(hostID string) string {
	return path.Join(v.prefix, "snapshots", hostID+".db.age")
}

// PutSnapshot uploads the sealed snapshot for a host, replacing any
// previous one. The multipart uploader does not need the size up front,
// but the byte count is still verified so a truncated reader fails loudly.
func (v *S3Vault) PutSnapshot(hostID string, r io.Reader, size int64, version int64) error {
	cr := &countingReader{r: r}

	_, err := v.uploader.Upload(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.snapshotKey(hostID)),
		Body:   cr,
		Metadata: map[string]string{
			versionMetadataKey: strconv.FormatInt(version, 10),
		},
	})
	if err != nil {
		return fmt.Errorf("uploading snapshot: %w", err)
	}

	if cr.n != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, cr.n)
	}
	return nil
}

// GetSnapshot downloads the sealed snapshot for a host and writes it to w.
func (v *S3Vault) GetSnapshot(hostID string, w io.Writer) error {
	out, err := v.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.snapshotKey(hostID)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return fmt.Errorf("snapshot not found for host: %s", hostID)
		}
		return fmt.Errorf("downloading snapshot: %w", err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	return nil
}

// SnapshotVersion returns the snapshot version stored in object metadata.
// Returns 0 if no snapshot exists or the object carries no version.
func (v *S3Vault) SnapshotVersion(hostID string) (int64, error) {
	out, err := v.client.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.snapshotKey(hostID)),
	})
	if err != nil {
		// HeadObject has no body, so the SDK models a missing object as
		// types.NotFound rather than NoSuchKey.
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("checking snapshot: %w", err)
	}

	raw, ok := out.Metadata[versionMetadataKey]
	if !ok {
		return 0, nil
	}

	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing snapshot version: %w", err)
	}
	return version, nil
}

// ValidateSetup verifies the bucket exists and is reachable with the
// configured credentials.
func (v *S3Vault) ValidateSetup() error {
	_, err := v.client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(v.bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

// countingReader counts bytes as the uploader consumes them.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Compile-time check that S3Vault implements the Vault interface
var _ locker.Vault = (*S3Vault)(nil)
