package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const proofPrefix = "proofs"

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PublicURL(key string) string
	Bucket() string
}

// Object is an uploaded photo.
type Object struct {
	Key         string
	URL         string
	ContentType string
	Size        int64
}

// Storage wraps an ObjectStorage backend with a stable API.
type Storage struct {
	backend       ObjectStorage
	publicBaseURL string
	now           func() time.Time
}

// NewStorage constructs a Storage wrapper for the provided backend.
// A non-empty publicBaseURL replaces the backend's own public URL scheme,
// e.g. when photos are served through a CDN.
func NewStorage(backend ObjectStorage, publicBaseURL string) *Storage {
	return &Storage{
		backend:       backend,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		now:           time.Now,
	}
}

// EnsureBucket ensures the configured bucket exists.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}

// PublicURL derives the public URL of an object. The URL is the only
// reference to the object that gets persisted.
func (s *Storage) PublicURL(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	return s.backend.PublicURL(key)
}

// UploadIssueImage stores a citizen's photo under <user-id>/<unix-millis>.<ext>.
func (s *Storage) UploadIssueImage(ctx context.Context, userID string, data []byte) (Object, error) {
	if strings.TrimSpace(userID) == "" {
		return Object{}, fmt.Errorf("upload issue image: missing user id")
	}
	return s.uploadImage(ctx, func(ext string) string {
		return IssueImageKey(userID, s.now(), ext)
	}, data)
}

// UploadProofImage stores a resolution proof under proofs/<issue-id>_<unix-millis>.<ext>.
func (s *Storage) UploadProofImage(ctx context.Context, issueID string, data []byte) (Object, error) {
	if strings.TrimSpace(issueID) == "" {
		return Object{}, fmt.Errorf("upload proof image: missing issue id")
	}
	return s.uploadImage(ctx, func(ext string) string {
		return ProofImageKey(issueID, s.now(), ext)
	}, data)
}

func (s *Storage) uploadImage(ctx context.Context, keyFor func(ext string) string, data []byte) (Object, error) {
	if len(data) == 0 {
		return Object{}, fmt.Errorf("upload image: empty file")
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return Object{}, fmt.Errorf("upload image: unsupported content type %s", mtype.String())
	}

	key := keyFor(strings.TrimPrefix(mtype.Extension(), "."))
	contentType := mtype.String()
	if err := s.backend.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return Object{}, fmt.Errorf("upload image %s: %w", key, err)
	}

	return Object{
		Key:         key,
		URL:         s.PublicURL(key),
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// IssueImageKey names a citizen's photo object.
func IssueImageKey(userID string, at time.Time, ext string) string {
	return fmt.Sprintf("%s/%d.%s", userID, at.UnixMilli(), extOrDefault(ext))
}

// ProofImageKey names a resolution proof object.
func ProofImageKey(issueID string, at time.Time, ext string) string {
	return fmt.Sprintf("%s/%s_%d.%s", proofPrefix, issueID, at.UnixMilli(), extOrDefault(ext))
}

func extOrDefault(ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		return "bin"
	}
	return ext
}
