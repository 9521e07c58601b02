package shutdown

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/yndnr/resonance-go/internal/telemetry/logger"
)

func waitAsync(h *Handler, ctx context.Context) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- h.Wait(ctx)
	}()
	return errCh
}

func TestNewHandler_DefaultTimeout(t *testing.T) {
	h := NewHandler(0, logger.Discard())
	if h.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", h.timeout, DefaultTimeout)
	}
	select {
	case <-h.Done():
		t.Error("Done channel should not be closed initially")
	default:
	}
}

func TestHandler_TriggerRunsHooksInReverse(t *testing.T) {
	h := NewHandler(time.Second, logger.Discard())

	var mu sync.Mutex
	var order []string
	for _, name := range []string{"metrics", "gateway", "watcher"} {
		name := name
		h.OnShutdown(name, func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		})
	}

	errCh := waitAsync(h, context.Background())
	h.Trigger("test")
	h.Trigger("ignored")

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Wait() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not complete in time")
	}

	want := []string{"watcher", "gateway", "metrics"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}

	select {
	case <-h.Done():
	default:
		t.Error("Done channel should be closed after Wait completes")
	}
}

func TestHandler_HookErrorsJoined(t *testing.T) {
	h := NewHandler(time.Second, logger.Discard())
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	h.OnShutdown("a", func(context.Context) error { return errA })
	h.OnShutdown("ok", func(context.Context) error { return nil })
	h.OnShutdown("b", func(context.Context) error { return errB })

	ctx, cancel := context.WithCancel(context.Background())
	errCh := waitAsync(h, ctx)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, errA) || !errors.Is(err, errB) {
			t.Errorf("Wait() error = %v, want both hook errors", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not complete in time")
	}
}

func TestHandler_HooksShareTimeout(t *testing.T) {
	h := NewHandler(20*time.Millisecond, logger.Discard())
	h.OnShutdown("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	errCh := waitAsync(h, context.Background())
	h.Trigger("test")

	select {
	case err := <-errCh:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hook timeout not enforced")
	}
}

func TestHandler_Signal(t *testing.T) {
	h := NewHandler(time.Second, logger.Discard())
	called := make(chan struct{}, 1)
	h.OnShutdown("hook", func(context.Context) error {
		called <- struct{}{}
		return nil
	})

	errCh := waitAsync(h, context.Background())
	time.Sleep(50 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Wait() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not complete in time")
	}
	select {
	case <-called:
	default:
		t.Error("hook was not called")
	}
}
