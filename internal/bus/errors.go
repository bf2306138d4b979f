package bus

import (
	"errors"
	"fmt"
)

// Kind classifies a dispatch failure.
type Kind int

const (
	// KindHandler is an ordinary failure returned by a handler.
	KindHandler Kind = iota
	// KindNoHandler means a command type has no registered handler. It is a
	// configuration error and aborts startup.
	KindNoHandler
	// KindDuplicateHandler means a second handler was registered for a command.
	KindDuplicateHandler
	// KindPanic means a handler panicked; the panic was recovered.
	KindPanic
)

func (k Kind) String() string {
	switch k {
	case KindHandler:
		return "handler"
	case KindNoHandler:
		return "no handler"
	case KindDuplicateHandler:
		return "duplicate handler"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// Error is the error value produced by the bus. UserFatal marks failures the
// user must be told about before the error propagates.
type Error struct {
	Kind      Kind
	Op        string
	Err       error
	UserFatal bool

	recorded bool
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err != nil:
		return e.Err.Error()
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Kind == KindHandler:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// UserFatal flags err as requiring user notification.
func UserFatal(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindHandler, Err: err, UserFatal: true}
}

// IsUserFatal reports whether any error in err's chain is flagged user-fatal.
func IsUserFatal(err error) bool {
	for err != nil {
		var be *Error
		if !errors.As(err, &be) {
			return false
		}
		if be.UserFatal {
			return true
		}
		err = be.Err
	}
	return false
}

// KindOf returns the kind of the outermost bus error in err's chain.
func KindOf(err error) (Kind, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return 0, false
}

// IsConfigError reports whether err is a missing or duplicate registration.
func IsConfigError(err error) bool {
	var be *Error
	if !errors.As(err, &be) {
		return false
	}
	return be.Kind == KindNoHandler || be.Kind == KindDuplicateHandler
}

func alreadyRecorded(err error) bool {
	for err != nil {
		var be *Error
		if !errors.As(err, &be) {
			return false
		}
		if be.recorded {
			return true
		}
		err = be.Err
	}
	return false
}
