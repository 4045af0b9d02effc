// Package blobstore stores generated documents, such as report archives,
// under slash separated keys. It defines the Store interface, an in-memory
// implementation for tests and development, and an S3 backend.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	ErrNotFound     = errors.New("blob not found")
	ErrExists       = errors.New("blob already exists")
	ErrFileTooLarge = errors.New("blob exceeds maximum allowed size")
	ErrInvalidKey   = errors.New("invalid blob key")
)

// MaxFileSize is the maximum allowed blob size in bytes (100 MB).
const MaxFileSize = 100 * 1024 * 1024

// Drivers.
const (
	DriverMemory = "memory"
	DriverS3     = "s3"
)

// Info describes a stored blob.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	Hash         string    `json:"hash,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store defines the contract for blob storage backends. Put is create-only.
type Store interface {
	Driver() string
	Put(ctx context.Context, key string, content io.Reader, contentType string) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	Delete(ctx context.Context, key string) error
}

// ValidateKey rejects empty keys, absolute keys and parent references.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

type storedBlob struct {
	info    Info
	content []byte
}

// Memory is a thread-safe, in-memory Store.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string]*storedBlob
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		blobs: make(map[string]*storedBlob),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) Driver() string { return DriverMemory }

// Put reads the content, computes a SHA-256 hash and stores the blob.
func (m *Memory) Put(_ context.Context, key string, content io.Reader, contentType string) (Info, error) {
	if err := ValidateKey(key); err != nil {
		return Info{}, err
	}
	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return Info{}, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return Info{}, ErrFileTooLarge
	}

	h := sha256.Sum256(data)
	info := Info{
		Key:          key,
		Size:         int64(len(data)),
		ContentType:  contentType,
		Hash:         fmt.Sprintf("%x", h),
		LastModified: m.now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[key]; ok {
		return Info{}, fmt.Errorf("%w: %s", ErrExists, key)
	}
	m.blobs[key] = &storedBlob{info: info, content: data}
	return info, nil
}

func (m *Memory) Get(_ context.Context, key string) (Info, io.ReadCloser, error) {
	m.mu.RLock()
	blob, ok := m.blobs[key]
	m.mu.RUnlock()
	if !ok {
		return Info{}, nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return blob.info, io.NopCloser(bytes.NewReader(blob.content)), nil
}

// List returns the blobs under prefix sorted by key.
func (m *Memory) List(_ context.Context, prefix string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Info
	for k, b := range m.blobs {
		if strings.HasPrefix(k, prefix) {
			out = append(out, b.info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	delete(m.blobs, key)
	return nil
}
