package fs

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tendant/venue-admin/pkg/media"
)

func TestFSBackend_BasicOps(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp, BaseURL: "http://localhost:8080/files"})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}

	ctx := context.Background()
	bucket, key := "venues", "clubs/1700000000000-abc.png"

	data := []byte("hello fs")
	if err := backend.Store(ctx, bucket, key, bytes.NewReader(data), media.StoreOptions{}); err != nil {
		t.Fatalf("store: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(tmp, bucket, key))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("content mismatch: %q", string(got))
	}

	if url := backend.PublicURL(bucket, key); url != "http://localhost:8080/files/venues/clubs/1700000000000-abc.png" {
		t.Fatalf("unexpected public url: %s", url)
	}

	if err := backend.Delete(ctx, bucket, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmp, bucket, key)); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err=%v", err)
	}
	if err := backend.Delete(ctx, bucket, key); err != media.ErrObjectNotFound {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestFSBackend_NoOverwrite(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir(), BaseURL: "/files"})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}
	ctx := context.Background()

	if err := backend.Store(ctx, "b", "a.png", bytes.NewReader([]byte("one")), media.StoreOptions{}); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := backend.Store(ctx, "b", "a.png", bytes.NewReader([]byte("two")), media.StoreOptions{}); err != media.ErrObjectExists {
		t.Fatalf("expected ErrObjectExists, got %v", err)
	}
	if err := backend.Store(ctx, "b", "a.png", bytes.NewReader([]byte("two")), media.StoreOptions{Overwrite: true}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestFSBackend_RejectsTraversal(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir(), BaseURL: "/files"})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}
	ctx := context.Background()

	cases := []struct{ bucket, path string }{
		{"..", "x.png"},
		{"b", "../../x.png"},
		{"a/b", "x.png"},
		{"b", ""},
	}
	for _, c := range cases {
		if err := backend.Store(ctx, c.bucket, c.path, bytes.NewReader(nil), media.StoreOptions{}); err == nil {
			t.Errorf("expected error for %q/%q", c.bucket, c.path)
		}
	}
}

func TestFSBackend_RequiresConfig(t *testing.T) {
	if _, err := New(Config{BaseURL: "/files"}); err == nil {
		t.Fatalf("expected error without base dir")
	}
	if _, err := New(Config{BaseDir: t.TempDir()}); err == nil {
		t.Fatalf("expected error without base url")
	}
}
