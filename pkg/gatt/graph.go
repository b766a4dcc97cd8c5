// Package gatt builds the BlueZ D-Bus object graph: the advertisement,
// the GATT service, and its two characteristics (spec.md §4.3, §6).
package gatt

import "github.com/godbus/dbus/v5"

// BusName is the well-known D-Bus name of the host object broker.
const BusName = "org.bluez"

// Object paths, compatibility-critical with the host broker's expectations.
const (
	AdapterPath dbus.ObjectPath = "/org/bluez/hci0"
	AdvertPath  dbus.ObjectPath = "/org/bluez/hci0/advert1"

	GattRootPath     dbus.ObjectPath = "/org/bluez/gatt"
	ServicePath      dbus.ObjectPath = "/org/bluez/gatt/service0"
	OutgoingCharPath dbus.ObjectPath = "/org/bluez/gatt/service0/char0"
	IncomingCharPath dbus.ObjectPath = "/org/bluez/gatt/service0/char1"
)

// Characteristic UUIDs.
const (
	IncomingCharUUID = "56add98a-0e8a-4113-85bf-6dc97b58a9c1"
	OutgoingCharUUID = "56add98a-0e8a-4113-85bf-6dc97b58a9c2"
)

// Interface names used on the published objects.
const (
	IfaceObjectManager  = "org.freedesktop.DBus.ObjectManager"
	IfaceProperties     = "org.freedesktop.DBus.Properties"
	IfaceAdvertisingMgr = "org.bluez.LEAdvertisingManager1"
	IfaceGattMgr        = "org.bluez.GattManager1"
	IfaceAdvertisement  = "org.bluez.LEAdvertisement1"
	IfaceGattService    = "org.bluez.GattService1"
	IfaceGattChar       = "org.bluez.GattCharacteristic1"
)

// CharacteristicLength is the physical GATT characteristic length (spec
// §4.2's "must not exceed the physical characteristic length (208)").
const CharacteristicLength = 208
