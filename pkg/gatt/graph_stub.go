//go:build !linux

package gatt

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/avalu/authperipheral/pkg/core"
)

// Graph is an in-memory stand-in for the BlueZ object graph on platforms
// without a system bus, mirroring the host-broker-is-optional split the
// teacher uses for its own platform-dependent component.
type Graph struct {
	callbacks core.ServiceCallbacks

	mu            sync.Mutex
	published     bool
	serviceUUID   string
	outgoingValue []byte
}

// New constructs a stub Graph with no callbacks registered yet.
func New() *Graph {
	log.Warn("gatt: D-Bus object broker is only supported on Linux, using in-memory stub")
	return &Graph{}
}

// SetCallbacks registers the ServiceCallbacks incoming characteristic
// traffic is routed to.
func (g *Graph) SetCallbacks(callbacks core.ServiceCallbacks) {
	g.callbacks = callbacks
}

func (g *Graph) Init() <-chan core.Completion {
	out := make(chan core.Completion, 1)
	out <- core.Completion{}
	return out
}

func (g *Graph) PublishAdvertisement(serviceUUID string) error {
	log.Debugf("gatt(stub): advertisement published, uuid=%s", serviceUUID)
	return nil
}

func (g *Graph) RegisterAdvertisement() <-chan core.Completion {
	out := make(chan core.Completion, 1)
	out <- core.Completion{}
	return out
}

func (g *Graph) UnregisterAdvertisement() <-chan core.Completion {
	out := make(chan core.Completion, 1)
	out <- core.Completion{}
	return out
}

func (g *Graph) PublishGatt(serviceUUID string) error {
	g.mu.Lock()
	g.published = true
	g.serviceUUID = serviceUUID
	g.mu.Unlock()
	log.Debugf("gatt(stub): service published, uuid=%s", serviceUUID)
	return nil
}

func (g *Graph) RegisterApplication() <-chan core.Completion {
	out := make(chan core.Completion, 1)
	out <- core.Completion{}
	return out
}

func (g *Graph) UnregisterApplication() <-chan core.Completion {
	out := make(chan core.Completion, 1)
	out <- core.Completion{}
	return out
}

func (g *Graph) UnpublishGatt() {
	g.mu.Lock()
	g.published = false
	g.serviceUUID = ""
	g.outgoingValue = nil
	g.mu.Unlock()
}

func (g *Graph) UnpublishAdvertisement() {}

func (g *Graph) SetOutgoingValue(chunk []byte) {
	g.mu.Lock()
	g.outgoingValue = chunk
	g.mu.Unlock()
	log.Tracef("gatt(stub): outgoing value set, %d bytes", len(chunk))
}

// WriteValue is a test/dev hook letting a stub-platform caller simulate
// an inbound characteristic write without a real bus connection.
func (g *Graph) WriteValue(raw []byte) error {
	if g.callbacks == nil {
		return fmt.Errorf("gatt(stub): no callbacks registered")
	}
	g.callbacks.OnWriteValue(raw)
	return nil
}

var _ core.GattBroker = (*Graph)(nil)
