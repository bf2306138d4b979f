package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type ping struct{ N int }

func (ping) Name() string { return "Ping" }

type pong struct{ N int }

func (pong) Name() string { return "Pong" }

type tick struct{ N int }

func (tick) Name() string { return "Tick" }

type recorderFunc func(op string, err error, stack []byte)

func (f recorderFunc) Record(op string, err error, stack []byte) { f(op, err, stack) }

type alerterFunc func(err error)

func (f alerterFunc) Alert(err error) { f(err) }

func TestInvoke_NoHandlerIsConfigError(t *testing.T) {
	b := New(Options{})

	_, err := b.Invoke(ping{})
	kind, ok := KindOf(err)
	if !ok || kind != KindNoHandler {
		t.Fatalf("expected KindNoHandler, got %v", err)
	}
	if !IsConfigError(err) {
		t.Fatalf("expected config error")
	}
}

func TestRaiseEvent_NoHandlersSucceeds(t *testing.T) {
	b := New(Options{})
	if err := b.RaiseEvent(tick{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestHandleCommand_RejectsDuplicate(t *testing.T) {
	b := New(Options{})
	handler := func(Dispatcher, ping) (Response, error) { return OK, nil }
	if err := HandleCommand(b, handler); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	err := HandleCommand(b, handler)
	if kind, _ := KindOf(err); kind != KindDuplicateHandler {
		t.Fatalf("expected KindDuplicateHandler, got %v", err)
	}
}

func TestRequireCommands(t *testing.T) {
	b := New(Options{})
	if err := HandleCommand(b, func(Dispatcher, ping) (Response, error) { return OK, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := b.RequireCommands(ping{}); err != nil {
		t.Fatalf("expected ping to be satisfied, got %v", err)
	}
	err := b.RequireCommands(ping{}, pong{})
	if kind, _ := KindOf(err); kind != KindNoHandler {
		t.Fatalf("expected KindNoHandler for pong, got %v", err)
	}
}

func TestInvoke_ReturnsHandlerResponse(t *testing.T) {
	b := New(Options{})
	if err := HandleCommand(b, func(_ Dispatcher, p ping) (Response, error) {
		return Response{Success: true, Data: p.N * 2}, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	resp, err := b.Invoke(ping{N: 21})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if !resp.Success || resp.Data != 42 {
		t.Fatalf("expected success with 42, got %+v", resp)
	}
}

func TestRaiseEvent_HandlersRunInRegistrationOrderThenPublish(t *testing.T) {
	b := New(Options{})
	var order []string
	HandleEvent(b, func(Dispatcher, tick) error { order = append(order, "first"); return nil })
	HandleEvent(b, func(Dispatcher, tick) error { order = append(order, "second"); return nil })

	events, cancel := b.Subscribe(4)
	defer cancel()

	if err := b.RaiseEvent(tick{N: 1}); err != nil {
		t.Fatalf("raise: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("expected [first second], got %v", order)
	}

	select {
	case evt := <-events:
		if evt.(tick).N != 1 {
			t.Fatalf("expected tick 1, got %+v", evt)
		}
	default:
		t.Fatalf("expected event to be published")
	}
}

func TestRaiseEvent_FailureStopsHandlersAndPublish(t *testing.T) {
	b := New(Options{})
	ran := 0
	HandleEvent(b, func(Dispatcher, tick) error { return errors.New("boom") })
	HandleEvent(b, func(Dispatcher, tick) error { ran++; return nil })
	events, cancel := b.Subscribe(1)
	defer cancel()

	if err := b.RaiseEvent(tick{}); err == nil {
		t.Fatalf("expected error")
	}
	if ran != 0 {
		t.Fatalf("expected later handler to be skipped")
	}
	select {
	case evt := <-events:
		t.Fatalf("expected no publish, got %+v", evt)
	default:
	}
}

func TestReentrantDispatchIsDepthFirst(t *testing.T) {
	b := New(Options{})
	var trace []string

	if err := HandleCommand(b, func(d Dispatcher, p ping) (Response, error) {
		trace = append(trace, "ping start")
		if err := d.RaiseEvent(tick{N: p.N}); err != nil {
			return Response{}, err
		}
		trace = append(trace, "ping end")
		return OK, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := HandleCommand(b, func(Dispatcher, pong) (Response, error) {
		trace = append(trace, "pong")
		return OK, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	HandleEvent(b, func(d Dispatcher, tk tick) error {
		trace = append(trace, "tick")
		_, err := d.Invoke(pong{N: tk.N})
		return err
	})

	if _, err := b.Invoke(ping{N: 1}); err != nil {
		t.Fatalf("invoke: %v", err)
	}

	want := []string{"ping start", "tick", "pong", "ping end"}
	if len(trace) != len(want) {
		t.Fatalf("expected %v, got %v", want, trace)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, trace)
		}
	}
}

func TestSerializesConcurrentCallers(t *testing.T) {
	b := New(Options{})
	var active, maxActive int32
	if err := HandleCommand(b, func(Dispatcher, ping) (Response, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			m := atomic.LoadInt32(&maxActive)
			if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&active, -1)
		return OK, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	HandleEvent(b, func(d Dispatcher, tk tick) error {
		_, err := d.Invoke(ping{})
		return err
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = b.Invoke(ping{})
			} else {
				_ = b.RaiseEvent(tick{})
			}
		}(i)
	}
	wg.Wait()

	if maxActive != 1 {
		t.Fatalf("expected at most one handler at a time, got %d", maxActive)
	}
}

func TestFailureIsRecordedOnceAcrossNesting(t *testing.T) {
	var records []string
	var alerts int
	b := New(Options{
		Recorder: recorderFunc(func(op string, err error, stack []byte) {
			records = append(records, op)
			if len(stack) == 0 {
				t.Errorf("expected stack context for %s", op)
			}
		}),
		Alerter: alerterFunc(func(error) { alerts++ }),
	})

	sentinel := errors.New("display went away")
	if err := HandleCommand(b, func(Dispatcher, pong) (Response, error) {
		return Response{}, UserFatal(sentinel)
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := HandleCommand(b, func(d Dispatcher, _ ping) (Response, error) {
		return d.Invoke(pong{})
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := b.Invoke(ping{})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel to propagate, got %v", err)
	}
	if !IsUserFatal(err) {
		t.Fatalf("expected user-fatal flag to survive propagation")
	}
	if len(records) != 1 || records[0] != "Pong" {
		t.Fatalf("expected one record for Pong, got %v", records)
	}
	if alerts != 1 {
		t.Fatalf("expected one alert, got %d", alerts)
	}
}

func TestOrdinaryFailureDoesNotAlert(t *testing.T) {
	alerts := 0
	b := New(Options{Alerter: alerterFunc(func(error) { alerts++ })})
	if err := HandleCommand(b, func(Dispatcher, ping) (Response, error) {
		return Response{}, errors.New("plain")
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := b.Invoke(ping{})
	if kind, _ := KindOf(err); kind != KindHandler {
		t.Fatalf("expected KindHandler, got %v", err)
	}
	if alerts != 0 {
		t.Fatalf("expected no alerts, got %d", alerts)
	}
}

func TestPanicIsRecoveredAndLockReleased(t *testing.T) {
	b := New(Options{})
	if err := HandleCommand(b, func(Dispatcher, ping) (Response, error) {
		panic("handler bug")
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := b.Invoke(ping{})
	if kind, _ := KindOf(err); kind != KindPanic {
		t.Fatalf("expected KindPanic, got %v", err)
	}

	done := make(chan struct{})
	go func() {
		_ = b.Exclusive(func(Dispatcher) error { return nil })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected lock to be released after panic")
	}
}

func TestSubscribe_DropsWhenFull(t *testing.T) {
	b := New(Options{})
	events, cancel := b.Subscribe(1)

	for i := 0; i < 3; i++ {
		if err := b.RaiseEvent(tick{N: i}); err != nil {
			t.Fatalf("raise: %v", err)
		}
	}
	if got := (<-events).(tick).N; got != 0 {
		t.Fatalf("expected first event to be kept, got %d", got)
	}

	cancel()
	cancel()
	if _, ok := <-events; ok {
		t.Fatalf("expected channel closed after cancel")
	}
}

func TestQueue_RunsInArrivalOrder(t *testing.T) {
	b := New(Options{})
	var mu sync.Mutex
	var got []int
	done := make(chan struct{})
	HandleEvent(b, func(_ Dispatcher, tk tick) error {
		mu.Lock()
		got = append(got, tk.N)
		if len(got) == 5 {
			close(done)
		}
		mu.Unlock()
		return nil
	})

	q := NewQueue()
	for i := 0; i < 5; i++ {
		q.Post(tick{N: i})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- q.Run(ctx, b) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for queue to drain")
	}
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for i, n := range got {
		if n != i {
			t.Fatalf("expected arrival order, got %v", got)
		}
	}
}
