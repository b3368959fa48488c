package handoff

import (
	"context"
	"testing"
	"time"

	"github.com/cuemby/halti-agent/pkg/types"
)

func svc(id string) types.ServiceSpec {
	return types.ServiceSpec{ServiceID: id}
}

func TestOfferThenTake(t *testing.T) {
	slot := New()

	if displaced := slot.Offer(types.DesiredSnapshot{Services: []types.ServiceSpec{svc("a")}}); displaced {
		t.Error("first Offer into an empty slot should never displace")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	snapshot, err := slot.Take(ctx)
	if err != nil {
		t.Fatalf("Take returned error: %v", err)
	}
	if len(snapshot.Services) != 1 || snapshot.Services[0].ServiceID != "a" {
		t.Errorf("unexpected snapshot: %+v", snapshot)
	}
}

func TestOfferOverwritesPending(t *testing.T) {
	slot := New()

	slot.Offer(types.DesiredSnapshot{Services: []types.ServiceSpec{svc("first")}})
	displaced := slot.Offer(types.DesiredSnapshot{Services: []types.ServiceSpec{svc("second")}})

	if !displaced {
		t.Error("Offer over a full slot should report displaced=true")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	snapshot, err := slot.Take(ctx)
	if err != nil {
		t.Fatalf("Take returned error: %v", err)
	}
	if len(snapshot.Services) != 1 || snapshot.Services[0].ServiceID != "second" {
		t.Errorf("expected only the latest offer to survive, got %+v", snapshot)
	}
}

func TestTakeBlocksUntilOffer(t *testing.T) {
	slot := New()

	result := make(chan types.DesiredSnapshot, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		snapshot, err := slot.Take(ctx)
		if err != nil {
			t.Errorf("Take returned error: %v", err)
			return
		}
		result <- snapshot
	}()

	time.Sleep(20 * time.Millisecond)
	slot.Offer(types.DesiredSnapshot{Services: []types.ServiceSpec{svc("late")}})

	select {
	case snapshot := <-result:
		if snapshot.Services[0].ServiceID != "late" {
			t.Errorf("unexpected snapshot: %+v", snapshot)
		}
	case <-time.After(time.Second):
		t.Fatal("Take never unblocked after Offer")
	}
}

func TestTakeRespectsContextCancellation(t *testing.T) {
	slot := New()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := slot.Take(ctx)
	if err == nil {
		t.Fatal("expected Take to return the context error")
	}
}

func TestOnlyLatestSurvivesMultipleOffers(t *testing.T) {
	slot := New()

	for i := 0; i < 5; i++ {
		slot.Offer(types.DesiredSnapshot{Services: []types.ServiceSpec{svc("v")}})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := slot.Take(ctx); err != nil {
		t.Fatalf("Take returned error: %v", err)
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel2()
	if _, err := slot.Take(ctx2); err == nil {
		t.Error("expected the slot to be empty after a single Take following repeated Offers")
	}
}
