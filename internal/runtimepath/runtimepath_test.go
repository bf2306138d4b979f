package runtimepath

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestDir_PrefersXDGRuntimeDir(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	got, err := Dir()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != td {
		t.Fatalf("expected %q, got %q", td, got)
	}
}

func TestDir_FallsBackWithoutXDGRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	uid := strconv.Itoa(os.Getuid())

	got, err := Dir()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantRun := filepath.Join("/run/user", uid)
	wantTmp := filepath.Join(os.TempDir(), "treetile-runtime-"+uid)
	if got != wantRun && got != wantTmp {
		t.Fatalf("expected %q or %q, got %q", wantRun, wantTmp, got)
	}
}

func TestSocketPath_DefaultAndOverride(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)
	t.Setenv("TREETILE_SOCKET", "")

	socket, err := SocketPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(td, "treetile.sock"); socket != want {
		t.Fatalf("expected %q, got %q", want, socket)
	}

	override := filepath.Join(td, "custom.sock")
	t.Setenv("TREETILE_SOCKET", override)
	if socket, _ := SocketPath(); socket != override {
		t.Fatalf("expected override %q, got %q", override, socket)
	}
}

func TestStateDir(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_STATE_HOME", td)
	if got, want := StateDir(), filepath.Join(td, "treetile"); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	home := t.TempDir()
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HOME", home)
	if got, want := StateDir(), filepath.Join(home, ".local", "state", "treetile"); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
