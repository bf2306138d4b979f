// Package alert shows user-fatal failures to the person at the desktop.
package alert

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/term"
)

// Mode selects where alerts are shown.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeTerminal Mode = "terminal"
	ModeNotify   Mode = "notify"
	ModeOff      Mode = "off"
)

// ParseMode validates a configured alert mode. Empty means auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeTerminal, ModeNotify, ModeOff:
		return m, nil
	default:
		return "", fmt.Errorf("unknown alert mode %q (want auto, terminal, notify or off)", s)
	}
}

// Alerter implements the bus alert surface. Alert blocks until the message
// has been displayed or handed to the notification daemon.
type Alerter struct {
	mode   Mode
	out    *os.File
	logger *slog.Logger

	isTerminal func(fd int) bool
	notify     func(summary, body string) error
}

// New creates an alerter writing terminal alerts to stderr.
func New(mode Mode, logger *slog.Logger) *Alerter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Alerter{
		mode:       mode,
		out:        os.Stderr,
		logger:     logger,
		isTerminal: term.IsTerminal,
		notify:     notifySend,
	}
}

// Alert shows err to the user.
func (a *Alerter) Alert(err error) {
	if a == nil || err == nil || a.mode == ModeOff {
		return
	}

	mode := a.mode
	if mode == ModeAuto {
		mode = ModeNotify
		if a.isTerminal(int(a.out.Fd())) {
			mode = ModeTerminal
		}
	}

	if mode == ModeNotify {
		nerr := a.notify("treetile error", err.Error())
		if nerr == nil {
			return
		}
		a.logger.Warn("desktop notification failed, falling back to stderr", "error", nerr)
	}
	writeTerminal(a.out, err)
}

func writeTerminal(w io.Writer, err error) {
	fmt.Fprintf(w, "\n*** treetile: %v ***\n\n", err)
}

func notifySend(summary, body string) error {
	cmd := exec.Command("notify-send", "--urgency=critical", "--app-name=treetile", summary, body)
	cmd.WaitDelay = 5 * time.Second
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("notify-send: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
