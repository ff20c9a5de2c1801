package report

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUploaderValidation(t *testing.T) {
	t.Parallel()

	_, err := NewUploader(UploadConfig{})
	assert.ErrorContains(t, err, "endpoint")

	_, err = NewUploader(UploadConfig{Endpoint: "localhost:9000", Bucket: "b"})
	assert.ErrorContains(t, err, "access key")

	_, err = NewUploader(UploadConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"})
	assert.ErrorContains(t, err, "bucket")

	u, err := NewUploader(UploadConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "b", Prefix: "/reports/"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", u.region)
	assert.Equal(t, "reports", u.prefix)
}

func TestObjectKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "reports/run-7/all.keys--errors.json.gz", ObjectKey("reports", "run-7", DefaultFileName))
	assert.Equal(t, "run-7/x.json.gz", ObjectKey("", "run-7", "x.json"))
}

func TestCompressRoundTrip(t *testing.T) {
	t.Parallel()

	payload := strings.Repeat(`{"type":"RELATION"}`+"\n", 100)
	var buf bytes.Buffer
	require.NoError(t, Compress(&buf, strings.NewReader(payload)))
	assert.Less(t, buf.Len(), len(payload))

	zr, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	got, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))
}

func TestUploadRequiresRunID(t *testing.T) {
	t.Parallel()

	u, err := NewUploader(UploadConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "b"})
	require.NoError(t, err)
	_, err = u.Upload(t.Context(), " ", "/nonexistent")
	assert.ErrorContains(t, err, "run id")
}
