package model

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRegistry_LoadCaches(t *testing.T) {
	dir := t.TempDir()
	if err := WriteSampleArtifacts(dir, 0.8); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	r := NewRegistry(dir, "", 0)
	ctx := context.Background()

	h1, err := r.Load(ctx, GradientBoostedTrees)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if h1.ID() != GradientBoostedTrees {
		t.Errorf("handle id = %q", h1.ID())
	}

	// Remove the backing file: the cached handle must still be served.
	if err := os.Remove(filepath.Join(dir, GradientBoostedTrees+".json")); err != nil {
		t.Fatalf("remove artifact: %v", err)
	}
	h2, err := r.Load(ctx, GradientBoostedTrees)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if h1 != h2 {
		t.Error("Load did not return the cached handle")
	}
}

func TestRegistry_UnknownModel(t *testing.T) {
	r := NewRegistry(t.TempDir(), "", 0)

	_, err := r.Load(context.Background(), "linear-regression")
	var aerr *ArtifactError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected ArtifactError, got %v", err)
	}
}

func TestRegistry_MissingArtifact(t *testing.T) {
	r := NewRegistry(t.TempDir(), "", 0)

	_, err := r.Load(context.Background(), RandomForestEnsemble)
	var aerr *ArtifactError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected ArtifactError, got %v", err)
	}
	if aerr.Artifact != RandomForestEnsemble {
		t.Errorf("error names artifact %q", aerr.Artifact)
	}
}

func TestRegistry_CorruptArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, GradientBoostedTrees+".json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write corrupt artifact: %v", err)
	}

	r := NewRegistry(dir, "", 0)
	_, err := r.Load(context.Background(), GradientBoostedTrees)
	var aerr *ArtifactError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected ArtifactError, got %v", err)
	}
}

func TestRegistry_FailureDoesNotPoisonOtherModels(t *testing.T) {
	dir := t.TempDir()
	if err := WriteSampleArtifacts(dir, 0.8); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, RandomForestEnsemble+".json")); err != nil {
		t.Fatalf("remove artifact: %v", err)
	}

	r := NewRegistry(dir, "", 0)
	ctx := context.Background()

	if _, err := r.Load(ctx, RandomForestEnsemble); err == nil {
		t.Fatal("expected failure for removed artifact")
	}
	if _, err := r.Load(ctx, GradientBoostedTrees); err != nil {
		t.Fatalf("unrelated model failed to load: %v", err)
	}
}

func TestRegistry_LoadEncoder(t *testing.T) {
	dir := t.TempDir()
	if err := WriteSampleArtifacts(dir, 0.8); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	r := NewRegistry(dir, "", 0)
	enc, err := r.LoadEncoder(context.Background())
	if err != nil {
		t.Fatalf("LoadEncoder failed: %v", err)
	}
	if label, _ := enc.Decode(1); label != LabelAboveLimit {
		t.Errorf("Decode(1) = %q, want %q", label, LabelAboveLimit)
	}

	enc2, err := r.LoadEncoder(context.Background())
	if err != nil {
		t.Fatalf("second LoadEncoder failed: %v", err)
	}
	if enc != enc2 {
		t.Error("LoadEncoder did not return the cached encoder")
	}
}

func TestRegistry_RemoteFetch(t *testing.T) {
	remote := t.TempDir()
	if err := WriteSampleArtifacts(remote, 0.7); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	srv := httptest.NewServer(http.FileServer(http.Dir(remote)))
	defer srv.Close()

	local := t.TempDir()
	r := NewRegistry(local, srv.URL, 5*time.Second)

	h, err := r.Load(context.Background(), GradientBoostedTrees)
	if err != nil {
		t.Fatalf("Load with remote fetch failed: %v", err)
	}
	if h.ID() != GradientBoostedTrees {
		t.Errorf("handle id = %q", h.ID())
	}

	// The artifact must now exist locally.
	if _, err := os.Stat(filepath.Join(local, GradientBoostedTrees+".json")); err != nil {
		t.Errorf("fetched artifact not cached on disk: %v", err)
	}
}

func TestRegistry_RemoteFetch404(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	r := NewRegistry(t.TempDir(), srv.URL, 5*time.Second)
	_, err := r.Load(context.Background(), GradientBoostedTrees)
	var aerr *ArtifactError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected ArtifactError, got %v", err)
	}
}
