package device

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/panshift/panshift/pkg/spec"
	"github.com/panshift/panshift/pkg/util"
)

// probeClient fails Connect a set number of times, then succeeds.
type probeClient struct {
	failures    int
	connectErr  error
	attempts    int
	disconnects int
}

func (p *probeClient) Connect(ctx context.Context) error {
	p.attempts++
	if p.connectErr != nil {
		return p.connectErr
	}
	if p.attempts <= p.failures {
		return fmt.Errorf("connection refused")
	}
	return nil
}

func (p *probeClient) Disconnect() error {
	p.disconnects++
	return nil
}

func (p *probeClient) Identity(ctx context.Context) (*Identity, error) { return &Identity{}, nil }
func (p *probeClient) Commit(ctx context.Context, timeout time.Duration) (*CommitResult, error) {
	return &CommitResult{Success: true}, nil
}
func (p *probeClient) ConfigureDevice(ctx context.Context, s spec.DeviceSettings) error { return nil }

func TestWaitReadySucceedsAfterRetries(t *testing.T) {
	client := &probeClient{failures: 2}
	opts := WaitOptions{Timeout: time.Second, Interval: time.Millisecond}

	if err := WaitReady(context.Background(), "fw-1", client, opts); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
	if client.attempts != 3 {
		t.Errorf("attempts = %d, want 3", client.attempts)
	}
	// The successful probe must release its connection.
	if client.disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", client.disconnects)
	}
}

func TestWaitReadyMaxRetries(t *testing.T) {
	client := &probeClient{connectErr: fmt.Errorf("connection refused")}
	opts := WaitOptions{Timeout: time.Minute, Interval: time.Millisecond, MaxRetries: 3}

	err := WaitReady(context.Background(), "fw-1", client, opts)
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if !errors.Is(err, util.ErrNotReady) {
		t.Errorf("error = %v, want ErrNotReady", err)
	}
	var nr *util.NotReadyError
	if !errors.As(err, &nr) {
		t.Fatalf("error = %T, want *util.NotReadyError", err)
	}
	if nr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", nr.Attempts)
	}
	if client.attempts != 3 {
		t.Errorf("client attempts = %d, want 3", client.attempts)
	}
}

func TestWaitReadyTimeout(t *testing.T) {
	client := &probeClient{connectErr: fmt.Errorf("connection refused")}
	opts := WaitOptions{Timeout: 30 * time.Millisecond, Interval: 10 * time.Millisecond}

	start := time.Now()
	err := WaitReady(context.Background(), "fw-1", client, opts)
	if err == nil {
		t.Fatal("expected error after timeout")
	}
	if !errors.Is(err, util.ErrNotReady) {
		t.Errorf("error = %v, want ErrNotReady", err)
	}
	if client.attempts < 1 {
		t.Error("at least one probe should run before the timeout")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("wait took %s, should stop near the 30ms timeout", elapsed)
	}
}

func TestWaitReadyWhicheverBoundFirst(t *testing.T) {
	// Generous retry budget, tight deadline: time wins.
	client := &probeClient{connectErr: fmt.Errorf("refused")}
	err := WaitReady(context.Background(), "fw-1", client,
		WaitOptions{Timeout: 25 * time.Millisecond, Interval: 10 * time.Millisecond, MaxRetries: 100})
	if err == nil {
		t.Fatal("expected error")
	}
	if client.attempts >= 100 {
		t.Errorf("attempts = %d, timeout should have stopped the wait first", client.attempts)
	}

	// Generous deadline, one retry: the count wins.
	client = &probeClient{connectErr: fmt.Errorf("refused")}
	start := time.Now()
	err = WaitReady(context.Background(), "fw-1", client,
		WaitOptions{Timeout: 10 * time.Second, Interval: 10 * time.Millisecond, MaxRetries: 1})
	if err == nil {
		t.Fatal("expected error")
	}
	if client.attempts != 1 {
		t.Errorf("attempts = %d, want 1", client.attempts)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("wait took %s, retry cap should stop it immediately", elapsed)
	}
}

func TestWaitReadyFirstProbeAlwaysRuns(t *testing.T) {
	client := &probeClient{}
	err := WaitReady(context.Background(), "fw-1", client,
		WaitOptions{Timeout: time.Nanosecond, Interval: time.Millisecond})
	if err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
	if client.attempts != 1 {
		t.Errorf("attempts = %d, want 1", client.attempts)
	}
}

func TestWaitReadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &probeClient{connectErr: fmt.Errorf("refused")}
	err := WaitReady(ctx, "fw-1", client, WaitOptions{Timeout: time.Minute, Interval: time.Second})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if client.attempts != 0 {
		t.Errorf("attempts = %d, want 0 when cancelled up front", client.attempts)
	}
}

func TestWaitReadyCancelledDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &probeClient{connectErr: fmt.Errorf("refused")}

	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := WaitReady(ctx, "fw-1", client,
		WaitOptions{Timeout: time.Minute, Interval: 10 * time.Second})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("wait took %s, cancellation should interrupt the sleep", elapsed)
	}
}
