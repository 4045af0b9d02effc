package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key string
		ok  bool
	}{
		{"reports/2026-01-02/hms-report.xlsx", true},
		{"a", true},
		{"", false},
		{"/abs/key", false},
		{"reports/", false},
		{"reports//x", false},
		{"reports/../secrets", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.ok && err != nil {
				t.Errorf("expected %q to be valid, got %v", tt.key, err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidKey) {
				t.Errorf("expected ErrInvalidKey for %q, got %v", tt.key, err)
			}
		})
	}
}

func TestMemory_PutGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	content := "hello world"

	info, err := m.Put(ctx, "docs/hello.txt", strings.NewReader(content), "text/plain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Size != int64(len(content)) {
		t.Errorf("expected size %d, got %d", len(content), info.Size)
	}
	if want := fmt.Sprintf("%x", sha256.Sum256([]byte(content))); info.Hash != want {
		t.Errorf("expected hash %s, got %s", want, info.Hash)
	}

	got, rc, err := m.Get(ctx, "docs/hello.txt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != content || got.ContentType != "text/plain" {
		t.Errorf("unexpected blob %+v %q", got, data)
	}
}

func TestMemory_PutIsCreateOnly(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.Put(ctx, "a/b", strings.NewReader("1"), "")
	if _, err := m.Put(ctx, "a/b", strings.NewReader("2"), ""); !errors.Is(err, ErrExists) {
		t.Errorf("expected ErrExists, got %v", err)
	}
}

func TestMemory_TooLarge(t *testing.T) {
	m := NewMemory()
	big := io.LimitReader(zeroReader{}, MaxFileSize+10)
	if _, err := m.Put(context.Background(), "big.bin", big, ""); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func TestMemory_ListAndDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for _, k := range []string{"reports/2026-01-02/b.xlsx", "reports/2026-01-01/a.xlsx", "other/x"} {
		m.Put(ctx, k, strings.NewReader(k), "")
	}

	infos, err := m.List(ctx, "reports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "reports/2026-01-01/a.xlsx" {
		t.Fatalf("unexpected listing: %+v", infos)
	}

	if err := m.Delete(ctx, "other/x"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := m.Delete(ctx, "other/x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := m.Get(ctx, "other/x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_ConcurrentPut(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Put(ctx, fmt.Sprintf("k/%02d", i), bytes.NewReader([]byte{byte(i)}), "")
		}(i)
	}
	wg.Wait()
	infos, _ := m.List(ctx, "k/")
	if len(infos) != 20 {
		t.Errorf("expected 20 blobs, got %d", len(infos))
	}
}
