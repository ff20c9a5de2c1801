package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// UploadConfig configures an S3-compatible destination for finished reports.
type UploadConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// Uploader copies a finished report file to object storage, gzip-compressed.
type Uploader struct {
	client *minio.Client
	bucket string
	region string
	prefix string

	initOnce sync.Once
	initErr  error
}

// NewUploader validates cfg and builds a minio client. It does not contact
// the server.
func NewUploader(cfg UploadConfig) (*Uploader, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("report upload: endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("report upload: access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("report upload: bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("report upload: init client: %w", err)
	}
	return &Uploader{
		client: client,
		bucket: bucket,
		region: region,
		prefix: strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
	}, nil
}

func (u *Uploader) ensureBucket(ctx context.Context) error {
	u.initOnce.Do(func() {
		exists, err := u.client.BucketExists(ctx, u.bucket)
		if err != nil {
			u.initErr = err
			return
		}
		if exists {
			return
		}
		u.initErr = u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{Region: u.region})
	})
	return u.initErr
}

// Upload stores the file at localPath under <prefix>/<runID>/<base>.gz and
// returns the object key.
func (u *Uploader) Upload(ctx context.Context, runID, localPath string) (string, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return "", fmt.Errorf("report upload: run id is required")
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("report upload: %w", err)
	}
	defer f.Close()

	if err := u.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("report upload: ensure bucket: %w", err)
	}

	key := ObjectKey(u.prefix, runID, filepath.Base(localPath))
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(Compress(pw, f))
	}()

	_, err = u.client.PutObject(ctx, u.bucket, key, pr, -1, minio.PutObjectOptions{
		ContentType:     "application/x-ndjson",
		ContentEncoding: "gzip",
	})
	_ = pr.CloseWithError(err)
	if err != nil {
		return "", fmt.Errorf("report upload: put %s: %w", key, err)
	}
	return key, nil
}

// ObjectKey joins prefix, runID and name into "<prefix>/<runID>/<name>.gz".
func ObjectKey(prefix, runID, name string) string {
	return strings.TrimPrefix(path.Join(prefix, runID, name+".gz"), "/")
}

// Compress gzips src into dst.
func Compress(dst io.Writer, src io.Reader) error {
	zw := gzip.NewWriter(dst)
	if _, err := io.Copy(zw, src); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}
