// Package bus serializes every command and event handler in the process behind
// one lock. Handlers receive a Dispatcher for follow-up work; calls made
// through it run immediately, inside the current step, before anything queued
// from outside.
package bus

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Command is a request handled by exactly one handler.
type Command interface {
	Name() string
}

// Event is a notification handled by zero or more handlers.
type Event interface {
	Name() string
}

// Response is the result of a command.
type Response struct {
	Success bool
	Data    any
}

// OK is the response of a command that completed without a payload.
var OK = Response{Success: true}

// Dispatcher issues commands and raises events.
type Dispatcher interface {
	Invoke(cmd Command) (Response, error)
	RaiseEvent(evt Event) error
}

// Recorder persists failures alongside their stack.
type Recorder interface {
	Record(op string, err error, stack []byte)
}

// Alerter surfaces user-fatal failures synchronously.
type Alerter interface {
	Alert(err error)
}

// Options configures a Bus.
type Options struct {
	Logger   *slog.Logger
	Recorder Recorder
	Alerter  Alerter
}

type commandFunc func(Dispatcher, Command) (Response, error)
type eventFunc func(Dispatcher, Event) error

// Bus is the process-wide dispatch facility.
type Bus struct {
	mu       sync.Mutex
	commands map[string]commandFunc
	events   map[string][]eventFunc

	logger   *slog.Logger
	recorder Recorder
	alerter  Alerter

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// New creates a bus with no handlers.
func New(opts Options) *Bus {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Bus{
		commands: make(map[string]commandFunc),
		events:   make(map[string][]eventFunc),
		logger:   logger,
		recorder: opts.Recorder,
		alerter:  opts.Alerter,
		subs:     make(map[int]chan Event),
	}
}

// HandleCommand registers fn as the handler for commands of type C. The
// command name is taken from C's zero value, so C must be a value type.
func HandleCommand[C Command](b *Bus, fn func(Dispatcher, C) (Response, error)) error {
	var zero C
	name := zero.Name()

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.commands[name]; exists {
		return &Error{Kind: KindDuplicateHandler, Op: name}
	}
	b.commands[name] = func(d Dispatcher, cmd Command) (Response, error) {
		typed, ok := cmd.(C)
		if !ok {
			return Response{}, fmt.Errorf("command %s has unexpected type %T", name, cmd)
		}
		return fn(d, typed)
	}
	return nil
}

// HandleEvent appends fn to the handlers for events of type E. Handlers run
// in registration order.
func HandleEvent[E Event](b *Bus, fn func(Dispatcher, E) error) {
	var zero E
	name := zero.Name()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[name] = append(b.events[name], func(d Dispatcher, evt Event) error {
		typed, ok := evt.(E)
		if !ok {
			return fmt.Errorf("event %s has unexpected type %T", name, evt)
		}
		return fn(d, typed)
	})
}

// RequireCommands fails with KindNoHandler for every listed command without a
// registered handler.
func (b *Bus) RequireCommands(cmds ...Command) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for _, cmd := range cmds {
		if _, ok := b.commands[cmd.Name()]; !ok {
			errs = append(errs, &Error{Kind: KindNoHandler, Op: cmd.Name()})
		}
	}
	return errors.Join(errs...)
}

// Invoke runs the handler for cmd as one serialized step. Handlers must not
// call Invoke on the Bus itself; they use the Dispatcher they were given.
func (b *Bus) Invoke(cmd Command) (Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.invoke(cmd)
}

// RaiseEvent runs every handler for evt as one serialized step, then
// publishes evt to subscribers.
func (b *Bus) RaiseEvent(evt Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.raise(evt)
}

// Exclusive runs fn while holding the serialization lock. It is for readers
// and compound operations outside the handler set.
func (b *Bus) Exclusive(fn func(d Dispatcher) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fn(locked{b})
}

// locked dispatches without taking the lock, which its holder already has.
type locked struct{ b *Bus }

func (l locked) Invoke(cmd Command) (Response, error) { return l.b.invoke(cmd) }
func (l locked) RaiseEvent(evt Event) error           { return l.b.raise(evt) }

func (b *Bus) invoke(cmd Command) (resp Response, err error) {
	name := cmd.Name()
	handler, ok := b.commands[name]
	if !ok {
		return Response{}, b.fail(&Error{Kind: KindNoHandler, Op: name}, nil)
	}

	b.logger.Debug("invoke", "command", name)
	err = b.call(name, func() error {
		var herr error
		resp, herr = handler(locked{b}, cmd)
		return herr
	})
	if err != nil {
		return Response{}, err
	}
	return resp, nil
}

func (b *Bus) raise(evt Event) error {
	name := evt.Name()
	b.logger.Debug("raise", "event", name)
	for _, handler := range b.events[name] {
		if err := b.call(name, func() error { return handler(locked{b}, evt) }); err != nil {
			return err
		}
	}
	b.publish(evt)
	return nil
}

// call runs fn, converting a panic into a KindPanic error.
func (b *Bus) call(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = b.fail(&Error{Kind: KindPanic, Op: op, Err: fmt.Errorf("%v", r)}, debug.Stack())
		}
	}()

	if err := fn(); err != nil {
		if alreadyRecorded(err) {
			return err
		}
		return b.fail(&Error{Kind: KindHandler, Op: op, Err: err, UserFatal: IsUserFatal(err)}, debug.Stack())
	}
	return nil
}

// fail records e once: log, persisted record, then the alert when e is
// user-fatal.
func (b *Bus) fail(e *Error, stack []byte) error {
	e.recorded = true
	b.logger.Error("dispatch failed", "op", e.Op, "kind", e.Kind.String(), "error", e.Err)
	if b.recorder != nil {
		b.recorder.Record(e.Op, e, stack)
	}
	if e.UserFatal && b.alerter != nil {
		b.alerter.Alert(e)
	}
	return e
}

// Subscribe returns a channel receiving every event published after all of
// its handlers succeeded. Delivery never blocks; a full channel drops the
// event. The returned function cancels the subscription.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	b.subMu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = ch
	b.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.subMu.Lock()
			delete(b.subs, id)
			b.subMu.Unlock()
			close(ch)
		})
	}
}

func (b *Bus) publish(evt Event) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.logger.Debug("subscriber full, event dropped", "event", evt.Name(), "subscriber", id)
		}
	}
}
