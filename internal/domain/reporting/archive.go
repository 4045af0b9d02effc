package reporting

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hms/hms/internal/platform/blobstore"
)

// ArchivePrefix is the blob key prefix under which exports are filed.
const ArchivePrefix = "reports/"

// ArchiveKey is reports/YYYY-MM-DD/hms-report-<timestamp>.xlsx.
func ArchiveKey(now time.Time) string {
	now = now.UTC()
	return fmt.Sprintf("%s%s/hms-report-%s.xlsx", ArchivePrefix, now.Format("2006-01-02"), now.Format("20060102T150405Z"))
}

// Archive exports the workbook and files it in the blob store.
func (s *Service) Archive(ctx context.Context, now time.Time) (blobstore.Info, error) {
	data, err := s.Export(ctx, now)
	if err != nil {
		return blobstore.Info{}, err
	}
	key := ArchiveKey(now)
	info, err := s.blobs.Put(ctx, key, bytes.NewReader(data), XLSXContentType)
	if err != nil {
		return blobstore.Info{}, fmt.Errorf("archiving %s: %w", key, err)
	}
	s.logger.Info().Str("key", info.Key).Int64("size", info.Size).Str("driver", s.blobs.Driver()).Msg("report archived")
	return info, nil
}

// ListArchive lists archived exports, optionally only one day (YYYY-MM-DD).
func (s *Service) ListArchive(ctx context.Context, day string) ([]blobstore.Info, error) {
	prefix := ArchivePrefix
	if day != "" {
		if _, err := time.Parse(time.DateOnly, day); err != nil {
			return nil, fmt.Errorf("%w: day must be YYYY-MM-DD", blobstore.ErrInvalidKey)
		}
		prefix += day + "/"
	}
	return s.blobs.List(ctx, prefix)
}

// OpenArchive returns an archived export for download. Keys outside the
// archive prefix are refused.
func (s *Service) OpenArchive(ctx context.Context, key string) (blobstore.Info, io.ReadCloser, error) {
	if !strings.HasPrefix(key, ArchivePrefix) {
		key = ArchivePrefix + key
	}
	if err := blobstore.ValidateKey(key); err != nil {
		return blobstore.Info{}, nil, err
	}
	return s.blobs.Get(ctx, key)
}
