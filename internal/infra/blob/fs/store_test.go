package fs

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"agritrack/internal/blob/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "blobs"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	put, err := store.Put(ctx, "traces/mock-001.json", strings.NewReader(`{"id":"mock-001"}`), core.PutOptions{ContentType: "application/json"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if put.ETag == "" {
		t.Fatalf("expected etag")
	}

	info, rc, err := store.Get(ctx, "traces/mock-001.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != `{"id":"mock-001"}` {
		t.Fatalf("unexpected body %q", body)
	}
	if info.ContentType != "application/json" || info.ETag != put.ETag {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestPutIsCreateOnly(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	if _, err := store.Put(ctx, "k", strings.NewReader("one"), core.PutOptions{}); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if _, err := store.Put(ctx, "k", strings.NewReader("two"), core.PutOptions{}); err == nil {
		t.Fatalf("expected second put to fail")
	}
}

func TestKeySanitization(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	for _, key := range []string{"", "  ", "/abs", "../escape", "a/../../b"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("expected rejection for key %q", key)
		}
	}
}

func TestDeleteRemovesSidecar(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	if _, err := store.Put(ctx, "k", strings.NewReader("data"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if ok, err := store.Delete(ctx, "k"); err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if _, err := store.Head(ctx, "k"); err == nil {
		t.Fatalf("expected head to fail after delete")
	}
	if ok, _ := store.Delete(ctx, "k"); ok {
		t.Fatalf("expected second delete to report false")
	}
}

func TestListWalksNestedKeys(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	for _, key := range []string{"traces/2023/a.json", "traces/2023/b.csv", "audit/x.json"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := store.List(ctx, "traces/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "traces/2023/a.json" || infos[1].Key != "traces/2023/b.csv" {
		t.Fatalf("unexpected listing %+v", infos)
	}
}

func TestPresignURLGetOnly(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	url, err := store.PresignURL(ctx, "traces/a.json", core.SignedURLOptions{})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.Contains(url, "local.blob") {
		t.Fatalf("unexpected url %q", url)
	}
	if _, err := store.PresignURL(ctx, "traces/a.json", core.SignedURLOptions{Method: "PUT"}); err == nil {
		t.Fatalf("expected PUT presign to be unsupported")
	}
}
