package errorlog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRecord_AppendsTimestampMessageAndStack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "errors.log")
	l, err := Open(Config{Enabled: true, FilePath: path, MaxSizeMB: 1, MaxFiles: 2})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	l.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	l.Record("SetWindowState", errors.New("invalid window state transition"), []byte("goroutine 1 [running]:\nmain.main()\n"))
	l.Record("Redraw", errors.New("second"), nil)
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := string(data)
	want := "2024-05-01T12:00:00Z [SetWindowState] invalid window state transition\n" +
		"    goroutine 1 [running]:\n" +
		"    main.main()\n" +
		"2024-05-01T12:00:00Z [Redraw] second\n"
	if got != want {
		t.Fatalf("expected:\n%s\ngot:\n%s", want, got)
	}
}

func TestRecord_AppendsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.log")
	for i := 0; i < 2; i++ {
		l, err := Open(Config{Enabled: true, FilePath: path, MaxSizeMB: 1, MaxFiles: 1})
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		l.Record("op", errors.New("boom"), nil)
		l.Close()
	}

	data, _ := os.ReadFile(path)
	if n := strings.Count(string(data), "boom"); n != 2 {
		t.Fatalf("expected 2 entries, got %d", n)
	}
}

func TestRecord_Rotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.log")
	l, err := Open(Config{Enabled: true, FilePath: path, MaxSizeMB: 1, MaxFiles: 2})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer l.Close()

	l.currentSize = 1024 * 1024
	l.Record("op", errors.New("after rotation"), nil)

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Fatalf("expected rotated file: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "after rotation") {
		t.Fatalf("expected new entry in fresh file, got %q", data)
	}
}

func TestDisabledAndNilLogDiscard(t *testing.T) {
	l, err := Open(Config{Enabled: false})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	l.Record("op", errors.New("ignored"), nil)

	var nilLog *Log
	nilLog.Record("op", errors.New("ignored"), nil)
	if err := nilLog.Close(); err != nil {
		t.Fatalf("expected nil close to succeed, got %v", err)
	}
}
