//go:build !linux

package hci

import log "github.com/sirupsen/logrus"

// Tuner is a no-op stand-in on platforms without raw HCI socket support.
type Tuner struct {
	deviceID int
}

// New constructs a stub Tuner bound to the given HCI device id.
func New(deviceID int) *Tuner {
	return &Tuner{deviceID: deviceID}
}

// TuneAdvertisingInterval logs and returns nil; interval tuning is a
// Linux-only capability (spec.md §4.7 "must tolerate absence of a device").
func (t *Tuner) TuneAdvertisingInterval() error {
	log.Debug("hci: interval tuning not supported on this platform, skipping")
	return nil
}
