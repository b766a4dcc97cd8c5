package core

// Completion is delivered on a channel when an asynchronous host-broker
// operation finishes. It is the typed continuation spec §9 calls for, in
// place of the original's raw user_data pointer convention.
type Completion struct {
	Err error
}

// GattBroker is the capability LifecycleController needs from the host
// object broker (spec §4.3). Implementations publish/unpublish the
// advertisement, GATT service, and two characteristics, and route the
// async BlueZ registration calls back onto the caller's event loop via
// buffered, single-use Completion channels.
//
// WriteValue/ReadValue/StartNotify/StopNotify are not part of this
// interface: the broker calls back into the Service through the
// ServiceCallbacks interface instead, the same "expose a narrow
// capability, don't hand out a pointer" shape the rest of the core uses.
type GattBroker interface {
	// Init acquires the bus connection and creates the GATT
	// object-manager root. No advertisement object-manager root is
	// created and no manager proxies are held: each manager call
	// addresses the adapter object when it is made. It must not block;
	// completion is delivered on the returned channel exactly once.
	Init() <-chan Completion

	// PublishAdvertisement exports the advertisement object at
	// /org/bluez/hci0/advert1 with the given service UUID.
	PublishAdvertisement(serviceUUID string) error
	// RegisterAdvertisement calls LEAdvertisingManager1.
	// RegisterAdvertisement asynchronously.
	RegisterAdvertisement() <-chan Completion
	// UnregisterAdvertisement calls LEAdvertisingManager1.
	// UnregisterAdvertisement asynchronously.
	UnregisterAdvertisement() <-chan Completion

	// PublishGatt exports the GATT service and its two characteristics.
	PublishGatt(serviceUUID string) error
	// RegisterApplication calls GattManager1.RegisterApplication
	// asynchronously.
	RegisterApplication() <-chan Completion
	// UnregisterApplication calls GattManager1.UnregisterApplication
	// asynchronously.
	UnregisterApplication() <-chan Completion

	// UnpublishGatt unexports the three GATT paths, which also removes
	// their method routing, and drops the server-side object references
	// (spec §4.4 stop protocol).
	UnpublishGatt()
	// UnpublishAdvertisement drops the advertisement object reference.
	UnpublishAdvertisement()

	// SetOutgoingValue sets the outgoing characteristic's Value property
	// to chunk and flushes a change notification. Called only from
	// within Framer.Enqueue, per spec §5's single-writer rule.
	SetOutgoingValue(chunk []byte)
}

// ServiceCallbacks is implemented by Service and invoked by a GattBroker
// when the host delivers a method call on the incoming characteristic.
type ServiceCallbacks interface {
	// OnWriteValue delivers one raw inbound chunk written by the central.
	OnWriteValue(raw []byte)
	// OnReadValue returns the bytes to answer a ReadValue call with.
	OnReadValue() []byte
}
