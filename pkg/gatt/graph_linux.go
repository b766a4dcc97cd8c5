//go:build linux

package gatt

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
	log "github.com/sirupsen/logrus"

	"github.com/avalu/authperipheral/pkg/core"
)

// Graph is the real BlueZ D-Bus implementation of core.GattBroker. It
// owns the system bus connection and every exported object's property
// set, and routes WriteValue/ReadValue calls to a core.ServiceCallbacks.
type Graph struct {
	callbacks core.ServiceCallbacks

	conn *dbus.Conn

	mu          sync.Mutex
	serviceUUID string
	published   bool

	advertProps  *prop.Properties
	serviceProps *prop.Properties
	outgoingProp *prop.Properties
	incomingProp *prop.Properties

	outgoingValue []byte
}

// New constructs a Graph with no callbacks registered yet. Call
// SetCallbacks before Init completes, since WriteValue/ReadValue may
// arrive as soon as the incoming characteristic is published.
func New() *Graph {
	return &Graph{}
}

// SetCallbacks registers the ServiceCallbacks incoming characteristic
// traffic is routed to. Exists as a separate step from New because the
// Service that implements ServiceCallbacks is itself constructed with a
// reference to this Graph (spec.md §9's "pass the instance explicitly
// through construction", applied to a two-party cycle).
func (g *Graph) SetCallbacks(callbacks core.ServiceCallbacks) {
	g.callbacks = callbacks
}

// Init acquires the system bus connection and exports the GATT root's
// object manager (spec.md §4.4 "gatt root created").
func (g *Graph) Init() <-chan core.Completion {
	out := make(chan core.Completion, 1)
	go func() {
		conn, err := dbus.SystemBus()
		if err != nil {
			out <- core.Completion{Err: fmt.Errorf("%w: %v", core.ErrBusUnavailable, err)}
			return
		}
		g.conn = conn

		if err := conn.Export((*objectManager)(g), GattRootPath, IfaceObjectManager); err != nil {
			out <- core.Completion{Err: fmt.Errorf("%w: %v", core.ErrProxyCreationFailed, err)}
			return
		}

		log.Debug("gatt: bus connection acquired, gatt root exported")
		out <- core.Completion{}
	}()
	return out
}

// PublishAdvertisement exports the advertisement object with the given
// service UUID (spec.md §4.3).
func (g *Graph) PublishAdvertisement(serviceUUID string) error {
	if err := g.conn.Export(&advertisement{}, AdvertPath, IfaceAdvertisement); err != nil {
		return fmt.Errorf("%w: export advertisement: %v", core.ErrProxyCreationFailed, err)
	}

	props := prop.Map{
		IfaceAdvertisement: {
			"Type":         {Value: "peripheral", Writable: false, Emit: prop.EmitFalse},
			"ServiceUUIDs": {Value: []string{serviceUUID}, Writable: false, Emit: prop.EmitFalse},
		},
	}
	advertProps, err := prop.Export(g.conn, AdvertPath, props)
	if err != nil {
		return fmt.Errorf("%w: export advertisement properties: %v", core.ErrProxyCreationFailed, err)
	}
	g.advertProps = advertProps

	log.Infof("gatt: advertisement published at %s, uuid=%s", AdvertPath, serviceUUID)
	return nil
}

// RegisterAdvertisement calls LEAdvertisingManager1.RegisterAdvertisement
// asynchronously.
func (g *Graph) RegisterAdvertisement() <-chan core.Completion {
	return g.asyncManagerCall(core.ErrRegistrationFailed, IfaceAdvertisingMgr, "RegisterAdvertisement", AdvertPath, map[string]dbus.Variant{})
}

// UnregisterAdvertisement calls
// LEAdvertisingManager1.UnregisterAdvertisement asynchronously.
func (g *Graph) UnregisterAdvertisement() <-chan core.Completion {
	return g.asyncManagerCall(core.ErrUnregistrationFailed, IfaceAdvertisingMgr, "UnregisterAdvertisement", AdvertPath)
}

// PublishGatt exports the GATT service and its two characteristics
// (spec.md §4.3).
func (g *Graph) PublishGatt(serviceUUID string) error {
	if err := g.conn.Export(&gattService{}, ServicePath, IfaceGattService); err != nil {
		return fmt.Errorf("%w: export service: %v", core.ErrProxyCreationFailed, err)
	}
	serviceProps, err := prop.Export(g.conn, ServicePath, prop.Map{
		IfaceGattService: {
			"UUID":    {Value: serviceUUID, Writable: false, Emit: prop.EmitFalse},
			"Primary": {Value: true, Writable: false, Emit: prop.EmitFalse},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: export service properties: %v", core.ErrProxyCreationFailed, err)
	}

	if err := g.conn.Export(&outgoingChar{g: g}, OutgoingCharPath, IfaceGattChar); err != nil {
		return fmt.Errorf("%w: export outgoing char: %v", core.ErrProxyCreationFailed, err)
	}
	outgoingProp, err := prop.Export(g.conn, OutgoingCharPath, prop.Map{
		IfaceGattChar: {
			"UUID":      {Value: OutgoingCharUUID, Writable: false, Emit: prop.EmitFalse},
			"Service":   {Value: ServicePath, Writable: false, Emit: prop.EmitFalse},
			"Flags":     {Value: []string{"notify"}, Writable: false, Emit: prop.EmitFalse},
			"Notifying": {Value: false, Writable: false, Emit: prop.EmitTrue},
			"Value":     {Value: []byte{}, Writable: false, Emit: prop.EmitTrue},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: export outgoing char properties: %v", core.ErrProxyCreationFailed, err)
	}

	if err := g.conn.Export(&incomingChar{g: g}, IncomingCharPath, IfaceGattChar); err != nil {
		return fmt.Errorf("%w: export incoming char: %v", core.ErrProxyCreationFailed, err)
	}
	incomingProp, err := prop.Export(g.conn, IncomingCharPath, prop.Map{
		IfaceGattChar: {
			"UUID":    {Value: IncomingCharUUID, Writable: false, Emit: prop.EmitFalse},
			"Service": {Value: ServicePath, Writable: false, Emit: prop.EmitFalse},
			"Flags":   {Value: []string{"write", "write-without-response"}, Writable: false, Emit: prop.EmitFalse},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: export incoming char properties: %v", core.ErrProxyCreationFailed, err)
	}

	g.mu.Lock()
	g.serviceProps = serviceProps
	g.outgoingProp = outgoingProp
	g.incomingProp = incomingProp
	g.serviceUUID = serviceUUID
	g.published = true
	g.mu.Unlock()

	log.Infof("gatt: service published at %s, uuid=%s", ServicePath, serviceUUID)
	return nil
}

// RegisterApplication calls GattManager1.RegisterApplication
// asynchronously.
func (g *Graph) RegisterApplication() <-chan core.Completion {
	return g.asyncManagerCall(core.ErrRegistrationFailed, IfaceGattMgr, "RegisterApplication", GattRootPath, map[string]dbus.Variant{})
}

// UnregisterApplication calls GattManager1.UnregisterApplication
// asynchronously.
func (g *Graph) UnregisterApplication() <-chan core.Completion {
	return g.asyncManagerCall(core.ErrUnregistrationFailed, IfaceGattMgr, "UnregisterApplication", GattRootPath)
}

// UnpublishGatt unexports the three GATT paths and drops the server-side
// object references (spec.md §4.4 stop protocol).
func (g *Graph) UnpublishGatt() {
	for _, path := range []dbus.ObjectPath{ServicePath, OutgoingCharPath, IncomingCharPath} {
		if err := g.conn.Export(nil, path, IfaceGattService); err != nil {
			log.Debugf("gatt: unexport %s: %v", path, err)
		}
		if err := g.conn.Export(nil, path, IfaceGattChar); err != nil {
			log.Debugf("gatt: unexport %s: %v", path, err)
		}
	}

	g.mu.Lock()
	g.serviceProps = nil
	g.outgoingProp = nil
	g.incomingProp = nil
	g.serviceUUID = ""
	g.published = false
	g.outgoingValue = nil
	g.mu.Unlock()

	log.Debug("gatt: gatt paths unpublished")
}

// UnpublishAdvertisement drops the advertisement object reference.
func (g *Graph) UnpublishAdvertisement() {
	if err := g.conn.Export(nil, AdvertPath, IfaceAdvertisement); err != nil {
		log.Debugf("gatt: unexport advertisement: %v", err)
	}
	g.advertProps = nil
	log.Debug("gatt: advertisement unpublished")
}

// SetOutgoingValue sets the outgoing characteristic's Value property and
// flushes a PropertiesChanged notification, the only place the Value is
// ever mutated (spec.md §5).
func (g *Graph) SetOutgoingValue(chunk []byte) {
	g.mu.Lock()
	g.outgoingValue = chunk
	outgoingProp := g.outgoingProp
	g.mu.Unlock()

	if outgoingProp == nil {
		log.Warn("gatt: SetOutgoingValue called with no characteristic published")
		return
	}
	outgoingProp.SetMust(IfaceGattChar, "Value", chunk)
}

func (g *Graph) asyncManagerCall(sentinel error, iface, method string, args ...interface{}) <-chan core.Completion {
	out := make(chan core.Completion, 1)
	call := make(chan *dbus.Call, 1)
	g.conn.Object(BusName, AdapterPath).Go(iface+"."+method, 0, call, args...)
	go func() {
		c := <-call
		if c.Err != nil {
			out <- core.Completion{Err: fmt.Errorf("%w: %s: %v", sentinel, method, c.Err)}
			return
		}
		out <- core.Completion{}
	}()
	return out
}

// objectManager implements org.freedesktop.DBus.ObjectManager on the
// GATT root by reporting whatever Graph currently has published.
type objectManager Graph

func (o *objectManager) GetManagedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, *dbus.Error) {
	g := (*Graph)(o)
	g.mu.Lock()
	defer g.mu.Unlock()

	result := map[dbus.ObjectPath]map[string]map[string]dbus.Variant{}
	if !g.published {
		return result, nil
	}

	result[ServicePath] = map[string]map[string]dbus.Variant{
		IfaceGattService: {
			"UUID":    dbus.MakeVariant(g.serviceUUID),
			"Primary": dbus.MakeVariant(true),
		},
	}
	result[OutgoingCharPath] = map[string]map[string]dbus.Variant{
		IfaceGattChar: {
			"UUID":    dbus.MakeVariant(OutgoingCharUUID),
			"Service": dbus.MakeVariant(ServicePath),
			"Flags":   dbus.MakeVariant([]string{"notify"}),
		},
	}
	result[IncomingCharPath] = map[string]map[string]dbus.Variant{
		IfaceGattChar: {
			"UUID":    dbus.MakeVariant(IncomingCharUUID),
			"Service": dbus.MakeVariant(ServicePath),
			"Flags":   dbus.MakeVariant([]string{"write", "write-without-response"}),
		},
	}
	return result, nil
}

// advertisement implements org.bluez.LEAdvertisement1's one method.
type advertisement struct{}

func (a *advertisement) Release() *dbus.Error {
	log.Debug("gatt: advertisement released by host")
	return nil
}

// gattService implements org.bluez.GattService1, which exposes no
// methods of its own beyond properties.
type gattService struct{}

// outgoingChar implements org.bluez.GattCharacteristic1 for the
// notify-only outgoing characteristic.
type outgoingChar struct {
	g *Graph
}

func (c *outgoingChar) ReadValue(options map[string]dbus.Variant) ([]byte, *dbus.Error) {
	c.g.mu.Lock()
	defer c.g.mu.Unlock()
	return c.g.outgoingValue, nil
}

func (c *outgoingChar) StartNotify() *dbus.Error {
	log.Debug("gatt: outgoing characteristic notifications enabled")
	return nil
}

func (c *outgoingChar) StopNotify() *dbus.Error {
	log.Debug("gatt: outgoing characteristic notifications disabled")
	return nil
}

// incomingChar implements org.bluez.GattCharacteristic1 for the
// write-only incoming characteristic.
type incomingChar struct {
	g *Graph
}

func (c *incomingChar) ReadValue(options map[string]dbus.Variant) ([]byte, *dbus.Error) {
	return c.g.callbacks.OnReadValue(), nil
}

func (c *incomingChar) WriteValue(value []byte, options map[string]dbus.Variant) *dbus.Error {
	raw := make([]byte, len(value))
	copy(raw, value)
	c.g.callbacks.OnWriteValue(raw)
	return nil
}

var _ core.GattBroker = (*Graph)(nil)
