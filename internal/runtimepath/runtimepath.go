// Package runtimepath locates the per-user files the daemon owns.
package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const appName = "treetile"

// Dir returns the runtime directory holding the daemon socket: XDG_RUNTIME_DIR,
// then /run/user/<uid>, then a private directory under the system temp dir.
func Dir() (string, error) {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir, nil
	}

	uid := strconv.Itoa(os.Getuid())
	if dir := filepath.Join("/run/user", uid); isDir(dir) {
		return dir, nil
	}

	dir := filepath.Join(os.TempDir(), appName+"-runtime-"+uid)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	return dir, nil
}

// SocketPath returns the daemon IPC socket path. TREETILE_SOCKET overrides it.
func SocketPath() (string, error) {
	if p := os.Getenv("TREETILE_SOCKET"); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName+".sock"), nil
}

// StateDir returns where persistent daemon state such as the error log
// lives: $XDG_STATE_HOME/treetile, else ~/.local/state/treetile. The
// directory is not created.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".local", "state", appName)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
