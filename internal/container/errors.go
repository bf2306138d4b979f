package container

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is matched by every *TransitionError.
	ErrInvalidTransition = errors.New("invalid window state transition")
	ErrNotAttached       = errors.New("container is not attached")
	ErrAlreadyAttached   = errors.New("container is already attached")
	ErrInvalidParent     = errors.New("invalid parent for container")
	ErrDuplicateHandle   = errors.New("window handle already managed")
)

// TransitionError reports a rejected window state change.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid window state transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func checkPlacement(c, parent Container) error {
	ok := false
	switch c.(type) {
	case *Monitor:
		ok = parent == nil
	case *Workspace:
		_, ok = parent.(*Monitor)
	case *SplitContainer, Window:
		switch parent.(type) {
		case *Workspace, *SplitContainer:
			ok = true
		}
	}
	if ok {
		return nil
	}
	parentKind := "root"
	if parent != nil {
		parentKind = parent.Kind().String()
	}
	return fmt.Errorf("%w: %s under %s", ErrInvalidParent, c.Kind(), parentKind)
}
