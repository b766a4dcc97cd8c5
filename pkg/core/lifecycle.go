package core

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// LifecycleState enumerates the states of spec §3/§4.4.
type LifecycleState int

const (
	Dormant LifecycleState = iota
	Initialising
	Initialised
	Advertising
	AdvertisingContinuous
	Connected
	Unadvertising
	Unadvertised
	Finalising
	Finalised
)

func (s LifecycleState) String() string {
	switch s {
	case Dormant:
		return "Dormant"
	case Initialising:
		return "Initialising"
	case Initialised:
		return "Initialised"
	case Advertising:
		return "Advertising"
	case AdvertisingContinuous:
		return "AdvertisingContinuous"
	case Connected:
		return "Connected"
	case Unadvertising:
		return "Unadvertising"
	case Unadvertised:
		return "Unadvertised"
	case Finalising:
		return "Finalising"
	case Finalised:
		return "Finalised"
	default:
		return fmt.Sprintf("LifecycleState(%d)", int(s))
	}
}

type commandKind int

const (
	cmdStart commandKind = iota
	cmdAdvertise
	cmdStop
	cmdWriteValue
	cmdRecycleTick
	cmdShutdown
	cmdInitDone
	cmdUnadvertised
)

// command is an internal request pushed onto the controller's single
// event-loop channel. Every public method of LifecycleController is a
// thin wrapper that enqueues one of these; the loop is the only goroutine
// that touches controller state, matching spec §5's no-locking rule.
type command struct {
	kind       commandKind
	continuous bool
	finalise   bool
	chunk      []byte
	err        error
}

// OutgoingSink abstracts the characteristic-value write the Framer's
// chunker drives; implemented by the GattBroker in production, by a
// recording stub in tests.
type OutgoingSink interface {
	SetOutgoingValue(chunk []byte)
}

// Tuner issues the advertising-interval HCI command sequence (spec §4.4,
// §4.7). Isolated behind an interface so it is swappable/skippable in
// tests, per spec §9.
type Tuner interface {
	TuneAdvertisingInterval() error
}

// LifecycleController sequences initialisation, (re)advertising,
// connection, teardown, and periodic recycling (spec §4.4).
type LifecycleController struct {
	broker GattBroker
	uuidFn func(continuous bool) (string, error)
	framer *Framer
	timers *TimerService
	fsm    AuthFSM
	hci    Tuner

	state LifecycleState

	connected       bool
	pendingFinalise bool
	cycling         bool
	published       bool

	pendingAdvertise  bool
	pendingContinuous bool

	cmds chan command
	done chan struct{}
}

// NewLifecycleController wires a controller from its collaborators.
// uuidFn re-derives the service UUID on every (re)advertise, matching
// spec §4.1/§4.5's continuity-bit re-derivation requirement.
func NewLifecycleController(broker GattBroker, framer *Framer, timers *TimerService, fsm AuthFSM, hci Tuner, uuidFn func(continuous bool) (string, error)) *LifecycleController {
	return &LifecycleController{
		broker: broker,
		framer: framer,
		timers: timers,
		fsm:    fsm,
		hci:    hci,
		uuidFn: uuidFn,
		state:  Dormant,
		cmds:   make(chan command, 8),
		done:   make(chan struct{}),
	}
}

// State returns the controller's current lifecycle state. Safe to call
// only from the controller's own goroutine, or after Run has returned.
func (c *LifecycleController) State() LifecycleState {
	return c.state
}

// Done returns a channel that is closed once Run's event loop has
// returned, e.g. after Shutdown. Reading State() is only safe after Done
// has fired, or from within the controller's own goroutine.
func (c *LifecycleController) Done() <-chan struct{} {
	return c.done
}

// IsConnected reports the derived connected predicate (spec invariant 3:
// connected=true implies state in {Connected, Unadvertising}).
func (c *LifecycleController) IsConnected() bool {
	return c.connected
}

// Start requests the Dormant -> Initialising transition.
func (c *LifecycleController) Start() { c.enqueue(command{kind: cmdStart}) }

// Advertise requests advertising with the given continuity flag.
func (c *LifecycleController) Advertise(continuous bool) {
	c.enqueue(command{kind: cmdAdvertise, continuous: continuous})
}

// Stop requests the stop protocol with the given pending-finalise flag.
func (c *LifecycleController) Stop(finalise bool) {
	c.enqueue(command{kind: cmdStop, finalise: finalise})
}

// DeliverWriteValue feeds one raw inbound chunk from a WriteValue call.
func (c *LifecycleController) DeliverWriteValue(raw []byte) {
	c.enqueue(command{kind: cmdWriteValue, chunk: raw})
}

// RecycleTick requests recycle-tick handling (spec §4.4 recycle table).
func (c *LifecycleController) RecycleTick() { c.enqueue(command{kind: cmdRecycleTick}) }

// Shutdown stops the controller's Run loop.
func (c *LifecycleController) Shutdown() { c.enqueue(command{kind: cmdShutdown}) }

func (c *LifecycleController) enqueue(cmd command) {
	select {
	case c.cmds <- cmd:
	case <-c.done:
	}
}

// Run is the controller's single-goroutine event loop. It must be the
// only goroutine to mutate controller state (spec §5); all async broker
// completions are folded back in as commands from the small goroutines
// spawned below, never touched directly from there.
func (c *LifecycleController) Run() {
	defer close(c.done)
	for cmd := range c.cmds {
		switch cmd.kind {
		case cmdStart:
			c.handleStart()
		case cmdInitDone:
			c.handleInitDone(cmd.err)
		case cmdAdvertise:
			c.handleAdvertise(cmd.continuous)
		case cmdStop:
			c.handleStop(cmd.finalise)
		case cmdUnadvertised:
			c.handleUnadvertised()
		case cmdWriteValue:
			c.handleWriteValue(cmd.chunk)
		case cmdRecycleTick:
			c.handleRecycleTick()
		case cmdShutdown:
			return
		}
	}
}

func (c *LifecycleController) handleStart() {
	if c.state != Dormant && c.state != Unadvertised {
		log.Warnf("lifecycle: start() requested from %s, ignoring", c.state)
		return
	}
	c.state = Initialising

	initDone := c.broker.Init()
	go func() {
		res := <-initDone
		c.enqueue(command{kind: cmdInitDone, err: res.Err})
	}()
}

func (c *LifecycleController) handleInitDone(err error) {
	if c.state != Initialising {
		log.Warnf("lifecycle: init completion delivered in %s, ignoring", c.state)
		return
	}
	if err != nil {
		log.Errorf("lifecycle: initialisation failed: %v", err)
		return
	}
	c.state = Initialised

	if c.pendingAdvertise {
		c.pendingAdvertise = false
		c.handleAdvertise(c.pendingContinuous)
	}
}

// handleAdvertise implements the Initialised -> Advertising/
// AdvertisingContinuous transition. When called from Dormant or
// Unadvertised (e.g. FsmBridge's listen() callback reacting to a
// disconnect), it first runs the init sequence and defers the actual
// advertise until Initialised is reached.
func (c *LifecycleController) handleAdvertise(continuous bool) {
	if c.state == Dormant || c.state == Unadvertised {
		c.pendingAdvertise = true
		c.pendingContinuous = continuous
		c.handleStart()
		return
	}
	if c.state != Initialised {
		log.Warnf("lifecycle: advertise() requested from %s, ignoring", c.state)
		return
	}

	uuid, err := c.uuidFn(continuous)
	if err != nil {
		log.Errorf("lifecycle: uuid derivation failed: %v", err)
		return
	}

	if err := c.broker.PublishAdvertisement(uuid); err != nil {
		log.Errorf("lifecycle: publish advertisement failed: %v", err)
	}
	if err := c.broker.PublishGatt(uuid); err != nil {
		log.Errorf("lifecycle: publish gatt failed: %v", err)
	}

	c.published = true
	if continuous {
		c.state = AdvertisingContinuous
	} else {
		c.state = Advertising
	}

	regAdvert := c.broker.RegisterAdvertisement()
	go func() {
		res := <-regAdvert
		if res.Err != nil {
			log.Errorf("lifecycle: register advertisement failed: %v", res.Err)
			return
		}
		if c.hci != nil {
			if err := c.hci.TuneAdvertisingInterval(); err != nil {
				log.Warnf("lifecycle: hci tuning failed: %v", err)
			}
		}
	}()

	regApp := c.broker.RegisterApplication()
	go func() {
		res := <-regApp
		if res.Err != nil {
			log.Errorf("lifecycle: register application failed: %v", res.Err)
		}
	}()
}

func (c *LifecycleController) handleWriteValue(raw []byte) {
	switch c.state {
	case Advertising, AdvertisingContinuous, Connected:
	default:
		log.Warnf("lifecycle: write value while in %s, ignoring", c.state)
		return
	}

	if c.state != Connected {
		c.state = Connected
		c.connected = true
		c.fsm.Connected()
	}

	if err := c.framer.Accept(raw, c.fsm.Read); err != nil {
		log.Warnf("lifecycle: framer rejected chunk: %v", err)
	}
}

// handleStop implements the stop() protocol of spec §4.4. It is reachable
// both from the public Stop() trigger (Advertising/AdvertisingContinuous/
// Connected) and from a recycle tick on Initialised/Unadvertised, where
// nothing is published yet and the unregister dance is skipped.
func (c *LifecycleController) handleStop(finalise bool) {
	switch c.state {
	case Advertising, AdvertisingContinuous, Connected, Initialised, Unadvertised:
	default:
		log.Warnf("lifecycle: stop() requested from %s, ignoring", c.state)
		return
	}

	c.pendingFinalise = finalise
	wasPublished := c.published
	c.state = Unadvertising

	if !wasPublished {
		c.enqueue(command{kind: cmdUnadvertised})
		return
	}

	unreg := c.broker.UnregisterApplication()
	go func() {
		res := <-unreg
		if res.Err != nil {
			log.Errorf("lifecycle: unregister application failed: %v", res.Err)
		}

		// GATT paths are unexported strictly between UnregisterApplication
		// and UnregisterAdvertisement (spec §5 ordering ii).
		c.broker.UnpublishGatt()

		unregAdvert := c.broker.UnregisterAdvertisement()
		advertRes := <-unregAdvert
		if advertRes.Err != nil {
			log.Errorf("lifecycle: unregister advertisement failed: %v", advertRes.Err)
		}
		c.broker.UnpublishAdvertisement()

		c.enqueue(command{kind: cmdUnadvertised})
	}()
}

func (c *LifecycleController) handleUnadvertised() {
	if c.state != Unadvertising {
		log.Warnf("lifecycle: unadvertised completion delivered in %s, ignoring", c.state)
		return
	}
	c.state = Unadvertised
	c.published = false

	if c.connected {
		c.connected = false
		c.fsm.Disconnected()
	}

	if c.pendingFinalise {
		c.state = Finalising
		c.timers.DisarmRecycle()
		c.state = Finalised
		return
	}

	if c.cycling {
		c.cycling = false
		c.handleStart()
	}
}

func (c *LifecycleController) handleRecycleTick() {
	switch c.state {
	case Initialising, Unadvertising, Finalising, Connected, AdvertisingContinuous:
		return
	case Advertising:
		// Resume advertising (non-continuous) once the fresh cycle
		// reaches Initialised again, so the net effect is a freshly
		// derived UUID with the same advertising mode (spec scenario S4).
		c.cycling = true
		c.pendingAdvertise = true
		c.pendingContinuous = false
		c.handleStop(false)
	case Initialised, Unadvertised:
		c.cycling = true
		c.handleStop(false)
	case Finalised:
		c.timers.DisarmRecycle()
	default:
		log.Warnf("lifecycle: recycle tick in unexpected state %s", c.state)
	}
}
