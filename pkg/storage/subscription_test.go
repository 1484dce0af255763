package storage

import (
	"errors"
	"testing"
	"time"
)

func TestSubscribeNotifyDeliver(t *testing.T) {
	subs := newSubscriptions("test")

	current := 1
	rx := subs.subscribe("k", func() (Payload, error) {
		return NewPayload(current), nil
	})
	defer rx.Close()

	current = 2
	subs.notify("k")

	<-rx.Changed()
	v, ok := As[int](rx.Latest())
	if !ok || v != 2 {
		t.Errorf("expected 2, got %v (ok=%v)", v, ok)
	}
}

func TestNotifyWithoutSubscription(t *testing.T) {
	subs := newSubscriptions("test")
	// Must not panic or create a record.
	subs.notify("nobody")

	subs.mu.RLock()
	defer subs.mu.RUnlock()
	if len(subs.m) != 0 {
		t.Errorf("expected no records, got %d", len(subs.m))
	}
}

func TestFirstGetterWins(t *testing.T) {
	subs := newSubscriptions("test")

	first := subs.subscribe("k", func() (Payload, error) {
		return NewPayload("first"), nil
	})
	defer first.Close()

	second := subs.subscribe("k", func() (Payload, error) {
		return NewPayload("second"), nil
	})
	defer second.Close()

	subs.notify("k")

	<-second.Changed()
	v, _ := As[string](second.Latest())
	if v != "first" {
		t.Errorf("later subscribers share the first getter, got %q", v)
	}
}

func TestUnsubscribeKeepsLiveReceivers(t *testing.T) {
	subs := newSubscriptions("test")

	rx := subs.subscribe("k", func() (Payload, error) {
		return NewPayload(1), nil
	})
	defer rx.Close()

	// A receiver is still live; the record stays.
	subs.unsubscribe("k")

	subs.mu.RLock()
	_, ok := subs.m["k"]
	subs.mu.RUnlock()
	if !ok {
		t.Error("record with live receivers should survive unsubscribe")
	}
}

func TestUnsubscribeRemovesDrainedRecord(t *testing.T) {
	subs := newSubscriptions("test")

	rx := subs.subscribe("k", func() (Payload, error) {
		return NewPayload(1), nil
	})
	rx.Close()
	subs.unsubscribe("k")

	subs.mu.RLock()
	_, ok := subs.m["k"]
	subs.mu.RUnlock()
	if ok {
		t.Error("drained record should be removed")
	}
}

func TestNotifySweepsDrainedRecord(t *testing.T) {
	subs := newSubscriptions("test")

	rx := subs.subscribe("k", func() (Payload, error) {
		return NewPayload(1), nil
	})
	rx.Close()

	// Receivers are gone but unsubscribe was never called; the next write
	// sweeps the record instead of broadcasting.
	subs.notify("k")

	subs.mu.RLock()
	_, ok := subs.m["k"]
	subs.mu.RUnlock()
	if ok {
		t.Error("notify should sweep a drained record")
	}
}

func TestDrainedRecordRevived(t *testing.T) {
	subs := newSubscriptions("test")

	first := subs.subscribe("k", func() (Payload, error) {
		return NewPayload("cached"), nil
	})
	subs.notify("k")
	<-first.Changed()
	first.Latest()
	first.Close()

	// Resubscribing before any sweep revives the record; the cached last
	// value is still observable.
	second := subs.subscribe("k", func() (Payload, error) {
		return NewPayload("fresh"), nil
	})
	defer second.Close()

	v, ok := As[string](second.Peek())
	if !ok || v != "cached" {
		t.Errorf("expected cached value on revival, got %v (ok=%v)", v, ok)
	}
}

func TestSubscribeRacingSweepStaysWired(t *testing.T) {
	subs := newSubscriptions("test")
	getter := func() (Payload, error) {
		return NewPayload("v"), nil
	}

	// Leave a drained record behind so every write wants to sweep it.
	subs.subscribe("k", getter).Close()

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				subs.notify("k")
			}
		}
	}()

	// Each receiver must stay reachable from the registry: a write issued
	// after subscribing has to wake it, no matter how the sweep interleaves.
	for i := 0; i < 200; i++ {
		rx := subs.subscribe("k", getter)
		subs.notify("k")
		select {
		case <-rx.Changed():
		case <-time.After(2 * time.Second):
			t.Fatalf("iteration %d: receiver detached from its record", i)
		}
		rx.Close()
	}

	close(stop)
	<-done
}

func TestGetterErrorSkipsBroadcast(t *testing.T) {
	subs := newSubscriptions("test")

	fail := true
	rx := subs.subscribe("k", func() (Payload, error) {
		if fail {
			return Payload{}, errTest
		}
		return NewPayload(7), nil
	})
	defer rx.Close()

	subs.notify("k")

	// No broadcast happened; the receiver still sees the sentinel.
	if rx.Peek().Data() != nil {
		t.Error("failed getter should not broadcast")
	}

	fail = false
	subs.notify("k")
	<-rx.Changed()
	v, _ := As[int](rx.Latest())
	if v != 7 {
		t.Errorf("expected 7 after recovery, got %d", v)
	}
}

var errTest = errors.New("getter failed")
