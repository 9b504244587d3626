// Package kyc stores uploaded identity documents in object storage.
package kyc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxDocumentSize bounds a single upload.
const MaxDocumentSize = 10 << 20

var (
	// ErrDocumentTooLarge rejects uploads above MaxDocumentSize.
	ErrDocumentTooLarge = errors.New("kyc document exceeds size limit")
	// ErrUnsupportedContentType rejects anything but images and PDFs.
	ErrUnsupportedContentType = errors.New("kyc document content type not supported")
)

var allowedContentTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

// Upload describes a document file attached to a KYC submission.
type Upload struct {
	Reader      io.Reader
	Size        int64
	ContentType string
}

// DocumentStore persists document files and returns their object path.
type DocumentStore interface {
	Put(ctx context.Context, recordID, docType string, upload Upload) (string, error)
}

// ObjectName builds kyc/<record>/<doctype>/<timestamp>-<uuid><ext>.
func ObjectName(recordID, docType, contentType string, now time.Time) (string, error) {
	ext, ok := allowedContentTypes[strings.ToLower(contentType)]
	if !ok {
		return "", ErrUnsupportedContentType
	}
	name := fmt.Sprintf("%s-%s%s", now.UTC().Format("20060102T150405Z"), uuid.NewString(), ext)
	return path.Join("kyc", recordID, docType, name), nil
}

func validate(upload Upload) error {
	if upload.Size <= 0 || upload.Size > MaxDocumentSize {
		return ErrDocumentTooLarge
	}
	if _, ok := allowedContentTypes[strings.ToLower(upload.ContentType)]; !ok {
		return ErrUnsupportedContentType
	}
	return nil
}

// MemoryStore keeps documents in memory for tests and development.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewMemoryStore builds an empty document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, recordID, docType string, upload Upload) (string, error) {
	if err := validate(upload); err != nil {
		return "", err
	}
	name, err := ObjectName(recordID, docType, upload.ContentType, time.Now())
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(upload.Reader, MaxDocumentSize)); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = buf.Bytes()
	return name, nil
}

// Object returns a stored document.
func (s *MemoryStore) Object(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[name]
	return b, ok
}
