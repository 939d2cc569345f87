package uploads

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/dataset"
	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/features"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleUpload(id string) Upload {
	return Upload{
		ID:         id,
		Name:       "applicants.csv",
		Format:     dataset.FormatCSV,
		Header:     append([]string{features.IDColumn}, features.Schema...),
		Rows:       [][]string{{"1", "34"}, {"2", "51"}},
		UploadedAt: time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
	}
}

func TestOpen_CreatesDatabaseFile(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	if _, err := os.Stat(filepath.Join(dir, "uploads.db")); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestSaveAndGet(t *testing.T) {
	c := newTestCache(t)

	if err := c.Save(sampleUpload("u1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	u, err := c.Get("u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if u.Name != "applicants.csv" {
		t.Errorf("name = %q", u.Name)
	}
	if u.RowCount != 2 {
		t.Errorf("row count = %d, want 2", u.RowCount)
	}
	if len(u.Rows) != 2 || u.Rows[1][0] != "2" {
		t.Errorf("rows not round-tripped: %v", u.Rows)
	}
}

func TestSave_ReplacesSameID(t *testing.T) {
	c := newTestCache(t)

	if err := c.Save(sampleUpload("u1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	replacement := sampleUpload("u1")
	replacement.Rows = [][]string{{"9", "60"}}
	if err := c.Save(replacement); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	u, err := c.Get("u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if u.RowCount != 1 || u.Rows[0][0] != "9" {
		t.Errorf("old upload not replaced: %v", u.Rows)
	}
}

func TestSave_EmptyID(t *testing.T) {
	c := newTestCache(t)
	if err := c.Save(Upload{}); err == nil {
		t.Error("expected error for empty upload id")
	}
}

func TestGet_NotFound(t *testing.T) {
	c := newTestCache(t)

	_, err := c.Get("missing")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.ID != "missing" {
		t.Errorf("error names id %q", nf.ID)
	}
}

func TestList(t *testing.T) {
	c := newTestCache(t)

	for _, id := range []string{"a", "b"} {
		if err := c.Save(sampleUpload(id)); err != nil {
			t.Fatalf("Save(%s) failed: %v", id, err)
		}
	}

	infos, err := c.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d uploads, want 2", len(infos))
	}
	if infos[0].ID != "a" || infos[1].ID != "b" {
		t.Errorf("unexpected listing order: %v", infos)
	}
	if infos[0].RowCount != 2 {
		t.Errorf("listed row count = %d, want 2", infos[0].RowCount)
	}
}

func TestDelete(t *testing.T) {
	c := newTestCache(t)

	if err := c.Save(sampleUpload("u1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := c.Delete("u1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := c.Get("u1"); err == nil {
		t.Error("upload still readable after delete")
	}

	// Deleting again is a no-op.
	if err := c.Delete("u1"); err != nil {
		t.Errorf("repeat Delete errored: %v", err)
	}
}
