package core

import (
	"bytes"
	"testing"
	"time"
)

// recordingSink is an OutgoingSink that just appends every chunk it
// receives, for assertions independent of a real GattBroker.
type recordingSink struct {
	chunks [][]byte
}

func (s *recordingSink) SetOutgoingValue(chunk []byte) {
	cp := make([]byte, len(chunk))
	copy(cp, chunk)
	s.chunks = append(s.chunks, cp)
}

var _ OutgoingSink = (*recordingSink)(nil)

func TestFsmBridge_Write_ChunksThroughFramer(t *testing.T) {
	framer, err := NewFramer(DefaultMaxSendSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sink := &recordingSink{}
	timers := NewTimerService(time.Hour)
	defer timers.Stop()

	bridge := NewFsmBridge(framer, timers, nil, sink)
	bridge.Write([]byte("hello"))

	if len(sink.chunks) != 1 {
		t.Fatalf("expected a single chunk for a short payload, got %d", len(sink.chunks))
	}
	want := append([]byte{0x00, 0x00, 0x00, 0x05}, []byte("hello")...)
	if !bytes.Equal(sink.chunks[0], want) {
		t.Errorf("got % X, want % X", sink.chunks[0], want)
	}
}

func TestFsmBridge_SetTimeout_FiresFsmTimeout(t *testing.T) {
	framer, err := NewFramer(DefaultMaxSendSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	timers := NewTimerService(time.Hour)
	defer timers.Stop()

	bridge := NewFsmBridge(framer, timers, nil, &recordingSink{})
	bridge.SetTimeout(20 * time.Millisecond)

	select {
	case <-timers.FsmTimeoutC():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for the bridged timeout")
	}
}

func TestFsmBridge_Listen_AdvertisesOnlyWhenNotConnected(t *testing.T) {
	broker := newFakeBroker()
	fsm := &fakeFSM{events: broker.events}
	tuner := &fakeTuner{events: broker.events}
	controller := newTestController(broker, fsm, tuner, "svc")

	go controller.Run()
	defer func() {
		controller.Shutdown()
		<-controller.Done()
	}()

	bridge := NewFsmBridge(controller.framer, controller.timers, controller, &recordingSink{})

	bridge.Listen()
	collectUntil(t, broker.events, 2*time.Second, func(events []string) bool {
		return countPrefix(events, "PublishAdvertisement:") >= 1
	})

	raw := []byte{0x00, 0x00, 0x00, 0x00, 0x03, 0x41, 0x42, 0x43}
	controller.DeliverWriteValue(raw)
	collectUntil(t, broker.events, 2*time.Second, func(events []string) bool {
		return contains(events, "Read:ABC")
	})

	bridge.Listen()

	select {
	case e := <-broker.events:
		t.Errorf("expected Listen() to be a no-op while connected, got %q", e)
	case <-time.After(50 * time.Millisecond):
	}
}
