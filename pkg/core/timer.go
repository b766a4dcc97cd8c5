package core

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultRecycleInterval is the default period of the recycle tick.
const DefaultRecycleInterval = 10 * time.Second

// TimerService owns the two timers used by the core subsystem: a
// resettable single-shot timer driven by the FSM's set_timeout requests,
// and a periodic recycle ticker. Both are expected to be driven from a
// single goroutine's select loop (see Service.Run), matching the
// single-threaded cooperative scheduling model of spec §5.
type TimerService struct {
	fsmTimer *time.Timer
	fsmFired chan struct{}

	recycleTicker *time.Ticker
}

// NewTimerService creates a TimerService with the recycle ticker armed at
// the given interval.
func NewTimerService(recycleInterval time.Duration) *TimerService {
	if recycleInterval <= 0 {
		recycleInterval = DefaultRecycleInterval
	}
	return &TimerService{
		fsmFired:      make(chan struct{}, 1),
		recycleTicker: time.NewTicker(recycleInterval),
	}
}

// SetTimeout cancels any outstanding FSM timer and arms a new single-shot
// timer for the given duration.
func (t *TimerService) SetTimeout(d time.Duration) {
	t.CancelTimeout()
	log.Debugf("timer: requesting timeout of %s", d)
	t.fsmTimer = time.AfterFunc(d, func() {
		select {
		case t.fsmFired <- struct{}{}:
		default:
		}
	})
}

// CancelTimeout cancels any outstanding FSM timer without arming a new one.
func (t *TimerService) CancelTimeout() {
	if t.fsmTimer != nil {
		t.fsmTimer.Stop()
		t.fsmTimer = nil
	}
}

// FsmTimeoutC returns the channel that fires when the FSM timer elapses.
func (t *TimerService) FsmTimeoutC() <-chan struct{} {
	return t.fsmFired
}

// RecycleC returns the channel that fires on each recycle tick.
func (t *TimerService) RecycleC() <-chan time.Time {
	return t.recycleTicker.C
}

// DisarmRecycle stops the recycle ticker permanently. Per spec §5 this
// must happen exactly once, when the lifecycle observes Finalised.
func (t *TimerService) DisarmRecycle() {
	t.recycleTicker.Stop()
}

// Stop releases both timers.
func (t *TimerService) Stop() {
	t.CancelTimeout()
	t.recycleTicker.Stop()
}
