package shutdown

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestHandlerRunsHooksInReverseOrder(t *testing.T) {
	h := NewHandler(time.Second, nil)

	var mu sync.Mutex
	var order []int
	record := func(n int) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			return nil
		}
	}
	h.OnShutdown("first", record(1))
	h.OnShutdown("second", record(2))
	h.OnShutdown("third", record(3))

	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait() }()

	time.Sleep(50 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGINT); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Wait() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not return after SIGINT")
	}

	want := []int{3, 2, 1}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestHandlerReturnsLastHookError(t *testing.T) {
	h := NewHandler(time.Second, nil)
	wantErr := errors.New("boom")

	h.OnShutdown("a", func(context.Context) error { return nil })
	h.OnShutdown("b", func(context.Context) error { return wantErr })
	h.OnShutdown("c", func(context.Context) error { return nil })

	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait() }()

	time.Sleep(50 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	select {
	case err := <-errCh:
		if err != wantErr {
			t.Fatalf("Wait() = %v, want %v", err, wantErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not return after SIGTERM")
	}
}

func TestHandlerConcurrentOnShutdown(t *testing.T) {
	h := NewHandler(time.Second, nil)

	var wg sync.WaitGroup
	const n = 10
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.OnShutdown("hook", func(context.Context) error { return nil })
		}()
	}
	wg.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.hooks) != n {
		t.Fatalf("hooks = %d, want %d", len(h.hooks), n)
	}
}
