package userstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestBolt(t *testing.T) Driver {
	t.Helper()
	d, err := NewBolt(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewBolt failed: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestBolt_SetGet(t *testing.T) {
	d := newTestBolt(t)
	ctx := context.Background()

	if err := d.Set(ctx, "123_k", []byte("value")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	data, err := d.Get(ctx, "123_k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != "value" {
		t.Errorf("Get = %q, want %q", data, "value")
	}
}

func TestBolt_GetMissing(t *testing.T) {
	d := newTestBolt(t)

	_, err := d.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing: got %v, want ErrNotFound", err)
	}
}

func TestBolt_Overwrite(t *testing.T) {
	d := newTestBolt(t)
	ctx := context.Background()

	d.Set(ctx, "k", []byte("old"))
	d.Set(ctx, "k", []byte("new"))

	data, err := d.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != "new" {
		t.Errorf("Get after overwrite = %q, want %q", data, "new")
	}
}

func TestBolt_DeleteAndExists(t *testing.T) {
	d := newTestBolt(t)
	ctx := context.Background()

	d.Set(ctx, "k", []byte("v"))

	exists, err := d.Exists(ctx, "k")
	if err != nil || !exists {
		t.Errorf("Exists(k) = %v, %v, want true, nil", exists, err)
	}

	if err := d.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	exists, err = d.Exists(ctx, "k")
	if err != nil || exists {
		t.Errorf("Exists after delete = %v, %v, want false, nil", exists, err)
	}

	// Deleting a missing key is a no-op.
	if err := d.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete missing key: got %v, want nil", err)
	}
}

func TestBolt_KeysPrefix(t *testing.T) {
	d := newTestBolt(t)
	ctx := context.Background()

	d.Set(ctx, "123_a", []byte("1"))
	d.Set(ctx, "123_b", []byte("2"))
	d.Set(ctx, "456_c", []byte("3"))
	// Adjacent prefix that must not leak into "123_" listings.
	d.Set(ctx, "1234_d", []byte("4"))

	keys, err := d.Keys(ctx, "123_")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	sort.Strings(keys)

	if diff := cmp.Diff([]string{"123_a", "123_b"}, keys); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
}

func TestBolt_Clear(t *testing.T) {
	d := newTestBolt(t)
	ctx := context.Background()

	d.Set(ctx, "123_a", []byte("1"))
	d.Set(ctx, "123_b", []byte("2"))
	d.Set(ctx, "456_c", []byte("3"))

	if err := d.Clear(ctx, "123_"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	keys, _ := d.Keys(ctx, "123_")
	if len(keys) != 0 {
		t.Errorf("Keys after Clear = %v, want none", keys)
	}
	if _, err := d.Get(ctx, "456_c"); err != nil {
		t.Errorf("Clear removed an unrelated key: %v", err)
	}
}

func TestBolt_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	d, err := NewBolt(path)
	if err != nil {
		t.Fatalf("NewBolt failed: %v", err)
	}
	if err := d.Set(ctx, "123_k", []byte("survives")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	d, err = NewBolt(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer d.Close()

	data, err := d.Get(ctx, "123_k")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(data) != "survives" {
		t.Errorf("Get after reopen = %q, want %q", data, "survives")
	}
}

func TestBolt_EphemeralRemovedOnClose(t *testing.T) {
	d, err := newTempBolt()
	if err != nil {
		t.Fatalf("newTempBolt failed: %v", err)
	}

	path := d.Location()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("ephemeral file missing before Close: %v", err)
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("ephemeral file still present after Close: %v", err)
	}
}

func TestBolt_Closed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "closed.db")
	d, err := NewBolt(path)
	if err != nil {
		t.Fatalf("NewBolt failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	ctx := context.Background()
	if err := d.Set(ctx, "k", []byte("v")); !errors.Is(err, ErrClosed) {
		t.Errorf("Set after Close: got %v, want ErrClosed", err)
	}
	if _, err := d.Get(ctx, "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get after Close: got %v, want ErrClosed", err)
	}
	if err := d.Clear(ctx, "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Clear after Close: got %v, want ErrClosed", err)
	}
}

func TestBolt_Location(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loc.db")
	d, err := NewBolt(path)
	if err != nil {
		t.Fatalf("NewBolt failed: %v", err)
	}
	defer d.Close()

	if d.Location() != path {
		t.Errorf("Location = %q, want %q", d.Location(), path)
	}
}
