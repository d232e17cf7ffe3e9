package storage

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestMount_ExistingDirectory(t *testing.T) {
	dir := t.TempDir()

	vol, err := Mount(dir, true)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	defer vol.Unmount()

	if !vol.Mounted() {
		t.Error("volume should be mounted")
	}
	if !vol.OneBitMode() {
		t.Error("OneBitMode() should reflect the mount option")
	}
	if vol.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", vol.Dir(), dir)
	}
	if _, err := os.Stat(filepath.Join(dir, writeCheckName)); !os.IsNotExist(err) {
		t.Error("write check file should be removed after mount")
	}
}

func TestMount_MissingDirectory(t *testing.T) {
	vol, err := Mount(filepath.Join(t.TempDir(), "nosuchcard"), true)
	if err == nil {
		t.Fatal("expected mount error")
	}
	if vol == nil {
		t.Fatal("Mount should return a degraded volume on failure")
	}
	if vol.Mounted() {
		t.Error("volume should not be mounted")
	}
	if _, err := vol.Create("/IMG_x.jpg"); !errors.Is(err, ErrNotMounted) {
		t.Errorf("Create on unmounted volume = %v, want ErrNotMounted", err)
	}
}

func TestMount_ReadOnlyDirectory(t *testing.T) {
	if runtime.GOOS == "windows" || os.Getuid() == 0 {
		t.Skip("permission bits not enforced")
	}
	dir := t.TempDir()
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	_, err := Mount(dir, true)
	if !errors.Is(err, ErrNoCard) {
		t.Errorf("err = %v, want ErrNoCard", err)
	}
}

func TestCreate_WritesAndTruncates(t *testing.T) {
	dir := t.TempDir()
	vol, _ := Mount(dir, true)
	defer vol.Unmount()

	for _, content := range []string{"first-long-content", "second"} {
		f, err := vol.Create("/IMG_foo.jpg")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := f.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}

	got, err := os.ReadFile(filepath.Join(dir, "IMG_foo.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Errorf("content = %q, want %q (overwrite on collision)", got, "second")
	}
}

func TestCreate_CannotEscapeRoot(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "card")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	vol, _ := Mount(dir, true)
	defer vol.Unmount()

	if _, err := vol.Create("/../escaped.jpg"); err == nil {
		t.Error("expected error for path leaving the volume")
	}
	if _, err := os.Stat(filepath.Join(parent, "escaped.jpg")); !os.IsNotExist(err) {
		t.Error("file must not be created outside the volume")
	}
}

func TestCreate_MissingSubdirectory(t *testing.T) {
	vol, _ := Mount(t.TempDir(), true)
	defer vol.Unmount()

	if _, err := vol.Create("/IMG_a/b.jpg"); err == nil {
		t.Error("expected error when parent directory does not exist")
	}
}

func TestUnmount_Idempotent(t *testing.T) {
	vol, _ := Mount(t.TempDir(), false)
	if err := vol.Unmount(); err != nil {
		t.Fatalf("Unmount: %v", err)
	}
	if err := vol.Unmount(); err != nil {
		t.Errorf("second Unmount: %v", err)
	}
	if vol.Mounted() {
		t.Error("volume should not be mounted after Unmount")
	}
}
