package core

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// stagingBound is the maximum number of bytes copied into the inbound
// staging buffer per spec §4.3 ("bounded by 207").
const stagingBound = 207

// Service is the single per-process instance owning the lifecycle state,
// the host-broker handles, the two framing buffers, and the reference to
// the external FSM (spec §3). It is constructed explicitly by its caller
// rather than reached through a package-level global (spec §9).
type Service struct {
	framer     *Framer
	timers     *TimerService
	controller *LifecycleController
	bridge     *FsmBridge
	fsm        AuthFSM
	broker     GattBroker

	stagingMu sync.Mutex
	staging   []byte

	stopLoop chan struct{}
}

// NewService wires a Service from its collaborators. maxSendSize
// configures the Framer; recycleInterval configures the periodic
// recycle tick.
func NewService(broker GattBroker, fsm AuthFSM, hci Tuner, uuidFn func(continuous bool) (string, error), maxSendSize int, recycleInterval time.Duration) (*Service, error) {
	framer, err := NewFramer(maxSendSize)
	if err != nil {
		return nil, err
	}

	timers := NewTimerService(recycleInterval)

	svc := &Service{
		framer:   framer,
		timers:   timers,
		fsm:      fsm,
		broker:   broker,
		stopLoop: make(chan struct{}),
	}

	controller := NewLifecycleController(broker, framer, timers, fsm, hci, uuidFn)
	svc.controller = controller
	svc.bridge = NewFsmBridge(framer, timers, controller, broker)

	return svc, nil
}

// Bridge returns the FSMCallbacks surface to hand to the external FSM at
// construction time (spec §4.5).
func (s *Service) Bridge() FSMCallbacks {
	return s.bridge
}

// Controller returns the lifecycle controller, e.g. for a keyboard loop
// to drive Start/Advertise/Stop.
func (s *Service) Controller() *LifecycleController {
	return s.controller
}

// Run starts the lifecycle controller's event loop and the timer-to-FSM
// glue loop. It blocks until Shutdown is called.
func (s *Service) Run() {
	go s.controller.Run()

	for {
		select {
		case <-s.timers.FsmTimeoutC():
			log.Debug("service: fsm timeout fired")
			s.fsm.Timeout()
		case <-s.timers.RecycleC():
			s.controller.RecycleTick()
		case <-s.stopLoop:
			s.controller.Shutdown()
			s.timers.Stop()
			return
		}
	}
}

// Shutdown stops Run's loop.
func (s *Service) Shutdown() {
	close(s.stopLoop)
}

var _ ServiceCallbacks = (*Service)(nil)

// OnWriteValue implements ServiceCallbacks. It stages a bounded copy of
// the raw bytes (for ReadValue) and forwards the chunk to the controller,
// which performs the Connected transition before the framer sees the
// bytes (spec §5 ordering iii).
func (s *Service) OnWriteValue(raw []byte) {
	n := len(raw)
	if n > stagingBound {
		n = stagingBound
	}

	s.stagingMu.Lock()
	s.staging = append(s.staging[:0], raw[:n]...)
	s.stagingMu.Unlock()

	s.controller.DeliverWriteValue(raw)
}

// OnReadValue implements ServiceCallbacks, returning a copy of the
// current inbound staging buffer.
func (s *Service) OnReadValue() []byte {
	s.stagingMu.Lock()
	defer s.stagingMu.Unlock()

	out := make([]byte, len(s.staging))
	copy(out, s.staging)
	return out
}
