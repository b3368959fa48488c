package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuemby/halti-agent/pkg/handoff"
	"github.com/cuemby/halti-agent/pkg/types"
)

type stubTransport struct {
	calls        int32
	snapshot     *types.DesiredSnapshot
	heartbeatErr error
}

func (s *stubTransport) Heartbeat(ctx context.Context, containers []types.RunningContainer) (*types.DesiredSnapshot, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.heartbeatErr != nil {
		return nil, s.heartbeatErr
	}
	return s.snapshot, nil
}

func TestSupervisorOffersReceivedSnapshot(t *testing.T) {
	slot := handoff.New()
	transport := &stubTransport{snapshot: &types.DesiredSnapshot{Services: []types.ServiceSpec{{ServiceID: "a"}}}}

	sup := New(transport, &stubEngine{}, slot, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	code := sup.Run(ctx, done)

	if code != 0 {
		t.Errorf("expected exit code 0 for a graceful shutdown, got %d", code)
	}
	if atomic.LoadInt32(&transport.calls) == 0 {
		t.Error("expected at least one heartbeat call")
	}

	takeCtx, takeCancel := context.WithTimeout(context.Background(), time.Second)
	defer takeCancel()
	snapshot, err := slot.Take(takeCtx)
	if err != nil {
		t.Fatalf("expected a snapshot to have been offered: %v", err)
	}
	if len(snapshot.Services) != 1 || snapshot.Services[0].ServiceID != "a" {
		t.Errorf("unexpected snapshot: %+v", snapshot)
	}
}

func TestSupervisorExitsNonZeroWhenWorkerDies(t *testing.T) {
	slot := handoff.New()
	transport := &stubTransport{}
	sup := New(transport, &stubEngine{}, slot, time.Hour)

	done := make(chan struct{})
	close(done)

	code := sup.Run(context.Background(), done)
	if code != 1 {
		t.Errorf("expected exit code 1 when the worker is dead, got %d", code)
	}
}

func TestSupervisorSkipsCycleOnHeartbeatError(t *testing.T) {
	slot := handoff.New()
	transport := &stubTransport{heartbeatErr: errors.New("timeout")}
	sup := New(transport, &stubEngine{}, slot, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	code := sup.Run(ctx, make(chan struct{}))
	if code != 0 {
		t.Errorf("a skipped heartbeat must not be treated as fatal, got exit code %d", code)
	}
}
