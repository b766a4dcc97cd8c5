package core

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// AuthFSM is the external authentication finite-state machine (spec §1:
// out of scope, only its interface is specified). The service drives it
// through this narrow surface and receives callbacks back through
// FSMCallbacks.
type AuthFSM interface {
	// Start begins the authentication flow with the long-term shared
	// secret material, the known-user list, and any extra application
	// data, none of which this package interprets.
	Start(shared, users, extraData []byte)
	// Connected notifies the FSM that a central has connected.
	Connected()
	// Disconnected notifies the FSM that the central has disconnected.
	Disconnected()
	// Read delivers one fully reassembled inbound message.
	Read(message []byte)
	// Timeout fires when the FSM's armed timer elapses.
	Timeout()
}

// FSMCallbacks is the capability surface spec §4.5 requires the host to
// expose to the external FSM.
type FSMCallbacks interface {
	Write(data []byte)
	SetTimeout(d time.Duration)
	Error()
	Listen()
	Disconnect()
	Authenticated(status int)
	SessionEnded()
	StatusUpdated(state int)
}

// FsmBridge adapts AuthFSM's callback requirements to the Framer,
// TimerService, and LifecycleController (spec §4.5).
type FsmBridge struct {
	framer     *Framer
	timers     *TimerService
	controller *LifecycleController
	sink       OutgoingSink
}

// NewFsmBridge constructs a bridge wired to the given collaborators.
func NewFsmBridge(framer *Framer, timers *TimerService, controller *LifecycleController, sink OutgoingSink) *FsmBridge {
	return &FsmBridge{framer: framer, timers: timers, controller: controller, sink: sink}
}

var _ FSMCallbacks = (*FsmBridge)(nil)

// Write hands off to Framer.Enqueue, which chunks the payload and feeds
// each chunk to the outgoing characteristic sink in order.
func (b *FsmBridge) Write(data []byte) {
	b.framer.Enqueue(data, func(chunk []byte) {
		b.sink.SetOutgoingValue(chunk)
	})
}

// SetTimeout cancels any prior timer and arms a single-shot timer that
// will call AuthFSM.Timeout when it elapses.
func (b *FsmBridge) SetTimeout(d time.Duration) {
	b.timers.SetTimeout(d)
}

// Error logs the FSM-reported error; no state change follows.
func (b *FsmBridge) Error() {
	log.Warn("fsmbridge: fsm reported an error")
}

// Listen begins continuous-mode advertising if not already connected,
// which causes a re-derivation of the service UUID with the continuity
// bit set (spec §4.5).
func (b *FsmBridge) Listen() {
	if !b.controller.IsConnected() {
		log.Debug("fsmbridge: listen requested, advertising continuously")
		b.controller.Advertise(true)
	}
}

// Disconnect requests a non-finalising stop if currently connected.
func (b *FsmBridge) Disconnect() {
	if b.controller.IsConnected() {
		log.Debug("fsmbridge: disconnect requested")
		b.controller.Stop(false)
	}
}

// Authenticated logs the FSM's reported authentication status.
func (b *FsmBridge) Authenticated(status int) {
	log.Infof("fsmbridge: authenticated, status=%d", status)
}

// SessionEnded logs session completion.
func (b *FsmBridge) SessionEnded() {
	log.Info("fsmbridge: session ended")
}

// StatusUpdated logs an FSM status transition.
func (b *FsmBridge) StatusUpdated(state int) {
	log.Debugf("fsmbridge: status updated, state=%d", state)
}
