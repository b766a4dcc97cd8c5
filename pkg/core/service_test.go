package core

import (
	"bytes"
	"testing"
	"time"
)

func newTestService(t *testing.T, broker *fakeBroker, fsm *fakeFSM, tuner *fakeTuner) *Service {
	t.Helper()
	uuidFn := func(continuous bool) (string, error) { return "svc-uuid", nil }
	svc, err := NewService(broker, fsm, tuner, uuidFn, DefaultMaxSendSize, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc
}

func TestService_OnReadValue_EmptyInitially(t *testing.T) {
	broker := newFakeBroker()
	fsm := &fakeFSM{events: broker.events}
	tuner := &fakeTuner{events: broker.events}
	svc := newTestService(t, broker, fsm, tuner)

	if got := svc.OnReadValue(); len(got) != 0 {
		t.Errorf("expected empty staging buffer before any write, got %d bytes", len(got))
	}
}

// TestService_OnWriteValue_StagesBoundedCopy checks the bound stated in
// spec.md §4.3: the inbound staging array copies at most 207 bytes,
// regardless of how much the central actually wrote.
func TestService_OnWriteValue_StagesBoundedCopy(t *testing.T) {
	broker := newFakeBroker()
	fsm := &fakeFSM{events: broker.events}
	tuner := &fakeTuner{events: broker.events}
	svc := newTestService(t, broker, fsm, tuner)

	go svc.Run()
	defer svc.Shutdown()

	raw := make([]byte, 300)
	for i := range raw {
		raw[i] = byte(i)
	}

	svc.OnWriteValue(raw)

	got := svc.OnReadValue()
	if len(got) != stagingBound {
		t.Fatalf("expected staged copy bounded at %d bytes, got %d", stagingBound, len(got))
	}
	if !bytes.Equal(got, raw[:stagingBound]) {
		t.Errorf("staged copy does not match the first %d bytes written", stagingBound)
	}
}

// TestService_OnWriteValue_ForwardsToController checks that a
// well-formed single-chunk write still reaches the FSM through the
// controller and framer, independent of the staging bound.
func TestService_OnWriteValue_ForwardsToController(t *testing.T) {
	broker := newFakeBroker()
	fsm := &fakeFSM{events: broker.events}
	tuner := &fakeTuner{events: broker.events}
	svc := newTestService(t, broker, fsm, tuner)

	go svc.Run()
	defer svc.Shutdown()

	svc.Controller().Advertise(false)
	collectUntil(t, broker.events, 2*time.Second, func(events []string) bool {
		return countPrefix(events, "RegisterApplication") >= 1
	})

	raw := []byte{0x00, 0x00, 0x00, 0x00, 0x03, 0x41, 0x42, 0x43}
	svc.OnWriteValue(raw)

	collectUntil(t, broker.events, 2*time.Second, func(events []string) bool {
		return contains(events, "Read:ABC")
	})
}
