package storage

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type fakeBackend struct {
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeBackend) EnsureBucket(context.Context) error { return nil }

func (f *fakeBackend) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeBackend) PublicURL(key string) string { return "http://objects.local/issue-images/" + key }

func (f *fakeBackend) Bucket() string { return "issue-images" }

func TestUploadIssueImage(t *testing.T) {
	backend := newFakeBackend()
	s := NewStorage(backend, "")
	s.now = func() time.Time { return time.UnixMilli(1700000000123) }

	obj, err := s.UploadIssueImage(context.Background(), "user-1", pngHeader)
	require.NoError(t, err)

	assert.Equal(t, "user-1/1700000000123.png", obj.Key)
	assert.Equal(t, "http://objects.local/issue-images/user-1/1700000000123.png", obj.URL)
	assert.Equal(t, "image/png", backend.types[obj.Key])
	assert.Equal(t, pngHeader, backend.objects[obj.Key])
}

func TestUploadProofImage_PublicBaseURL(t *testing.T) {
	s := NewStorage(newFakeBackend(), "https://cdn.example.com/")
	s.now = func() time.Time { return time.UnixMilli(42) }

	obj, err := s.UploadProofImage(context.Background(), "17", pngHeader)
	require.NoError(t, err)

	assert.Equal(t, "proofs/17_42.png", obj.Key)
	assert.Equal(t, "https://cdn.example.com/proofs/17_42.png", obj.URL)
}

func TestUploadImage_Rejects(t *testing.T) {
	s := NewStorage(newFakeBackend(), "")

	_, err := s.UploadIssueImage(context.Background(), "user-1", nil)
	assert.Error(t, err)

	_, err = s.UploadIssueImage(context.Background(), "user-1", []byte("plain text, not a photo"))
	assert.ErrorContains(t, err, "unsupported content type")

	_, err = s.UploadIssueImage(context.Background(), " ", pngHeader)
	assert.Error(t, err)
}

func TestUploadImage_BackendError(t *testing.T) {
	backend := newFakeBackend()
	backend.putErr = errors.New("bucket unavailable")
	s := NewStorage(backend, "")

	_, err := s.UploadIssueImage(context.Background(), "user-1", pngHeader)
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.putErr)
}

func TestMinioPublicURL(t *testing.T) {
	m := &MinioClient{bucket: "issue-images", endpoint: "minio.local:9000", useSSL: true}
	assert.Equal(t, "https://minio.local:9000/issue-images/u/1.jpg", m.PublicURL("u/1.jpg"))
}

func TestGCSPublicURL(t *testing.T) {
	g := &GCSClient{bucket: "issue-images"}
	assert.Equal(t, "https://storage.googleapis.com/issue-images/u/1.jpg", g.PublicURL("u/1.jpg"))
	assert.Equal(t, "https://storage.googleapis.com/issue-images/proofs/a%20b.jpg", g.PublicURL("proofs/a b.jpg"))
}
