package reporting

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/360EntSecGroup-Skylar/excelize"

	"github.com/hms/hms/internal/platform/blobstore"
)

func TestService_Export(t *testing.T) {
	svc, _ := newTestService(t)
	data, err := svc.Export(context.Background(), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	sheets := map[string]bool{}
	for _, name := range f.GetSheetMap() {
		sheets[name] = true
	}
	if sheets["Sheet1"] {
		t.Error("expected default sheet to be removed")
	}
	for _, def := range WorkbookSheets {
		if !sheets[def.Name] {
			t.Errorf("missing sheet %q", def.Name)
		}
	}

	if got := f.GetCellValue("Summary", "A7"); got != "Revenue" {
		t.Errorf("Summary!A7 = %q", got)
	}
	if got := f.GetCellValue("Summary", "B7"); got != "6500" {
		t.Errorf("Summary!B7 = %q", got)
	}
	if got := f.GetCellValue("Claims by provider", "A3"); got != "Hygeia" {
		t.Errorf("Claims by provider!A3 = %q", got)
	}
	if got := f.GetCellValue("Low stock", "C2"); got != "Insulin" {
		t.Errorf("Low stock!C2 = %q", got)
	}
}

func TestCell(t *testing.T) {
	if got := cell(0, 1); got != "A1" {
		t.Errorf("cell(0,1) = %s", got)
	}
	if got := cell(4, 12); got != "E12" {
		t.Errorf("cell(4,12) = %s", got)
	}
}

func TestArchiveKey(t *testing.T) {
	if got := ArchiveKey(testNow); got != "reports/2026-03-01/hms-report-20260301T150000Z.xlsx" {
		t.Errorf("unexpected key %s", got)
	}
}

func TestService_ArchiveRoundTrip(t *testing.T) {
	svc, blobs := newTestService(t)
	ctx := context.Background()

	info, err := svc.Archive(ctx, testNow)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if info.ContentType != XLSXContentType || info.Size == 0 {
		t.Errorf("unexpected info: %+v", info)
	}
	if _, err := svc.Archive(ctx, testNow); !errors.Is(err, blobstore.ErrExists) {
		t.Errorf("expected second archive in the same second to collide, got %v", err)
	}

	blobs.Put(ctx, "other/file.txt", strings.NewReader("x"), "")
	all, err := svc.ListArchive(ctx, "")
	if err != nil || len(all) != 1 {
		t.Fatalf("expected one archive, got %+v %v", all, err)
	}
	day, _ := svc.ListArchive(ctx, "2026-02-28")
	if len(day) != 0 {
		t.Errorf("expected no archive for another day, got %+v", day)
	}
	if _, err := svc.ListArchive(ctx, "yesterday"); !errors.Is(err, blobstore.ErrInvalidKey) {
		t.Errorf("expected bad day to be refused, got %v", err)
	}

	_, rc, err := svc.OpenArchive(ctx, strings.TrimPrefix(info.Key, ArchivePrefix))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if int64(len(data)) != info.Size {
		t.Errorf("expected %d bytes, got %d", info.Size, len(data))
	}

	if _, _, err := svc.OpenArchive(ctx, "../other/file.txt"); !errors.Is(err, blobstore.ErrInvalidKey) {
		t.Errorf("expected traversal to be refused, got %v", err)
	}
}

func TestService_StartDailyArchive(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.StartDailyArchive("25:99", nil); err == nil {
		t.Fatal("expected invalid time to be rejected")
	}
	sched, err := svc.StartDailyArchive("02:00", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sched.Stop()
	if sched.NextRun().IsZero() {
		t.Error("expected next run to be set")
	}
}
