//go:build linux

// Package hci issues the raw HCI opcode sequence used to tune the
// controller's advertising interval (spec.md §4.4, §4.7).
package hci

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const (
	ogfLEController             = 0x08
	ocfSetAdvertisingEnable     = 0x000a
	ocfSetAdvertisingParameters = 0x0006

	hciCommandPkt = 0x01
)

// Default advertising parameters (spec.md §4.4): interval range
// 0x00A0-0x00AF, connectable-scannable-undirected, all channels, no
// filter policy.
var advertisingParameters = []byte{
	0xA0, 0x00, // Advertising_Interval_Min
	0xAF, 0x00, // Advertising_Interval_Max
	0x00,                   // Advertising_Type: connectable-scannable undirected
	0x01,                   // Own_Address_Type: random (dbus-test.c bytes_interval[5])
	0x01,                   // Peer_Address_Type: random (dbus-test.c bytes_interval[6])
	0x00, 0x00, 0x00, 0x00, // Peer_Address
	0x00, 0x00,
	0x07, // Advertising_Channel_Map: all channels
	0x00, // Advertising_Filter_Policy: no white list
}

// Tuner issues the advertising-interval HCI command sequence against a
// specific adapter device id.
type Tuner struct {
	deviceID int
}

// New constructs a Tuner bound to the given HCI device id (0 for hci0).
func New(deviceID int) *Tuner {
	return &Tuner{deviceID: deviceID}
}

// TuneAdvertisingInterval opens a raw HCI socket, disables advertising,
// sets the interval/parameter block, re-enables advertising, then closes
// the socket. Absence of a device is logged, not fatal (spec.md §4.7).
func (t *Tuner) TuneAdvertisingInterval() error {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW, btprotoHCI)
	if err != nil {
		log.Warnf("hci: socket unavailable, skipping interval tuning: %v", err)
		return fmt.Errorf("hci unavailable: %w", err)
	}
	defer unix.Close(fd)

	if err := bindHCIDevice(fd, t.deviceID); err != nil {
		log.Warnf("hci: device hci%d unavailable, skipping interval tuning: %v", t.deviceID, err)
		return fmt.Errorf("hci unavailable: %w", err)
	}

	if err := sendCommand(fd, ogfLEController, ocfSetAdvertisingEnable, []byte{0x00}); err != nil {
		log.Warnf("hci: disable command failed: %v", err)
		return err
	}
	if err := sendCommand(fd, ogfLEController, ocfSetAdvertisingParameters, advertisingParameters); err != nil {
		log.Warnf("hci: parameters command failed: %v", err)
		return err
	}
	if err := sendCommand(fd, ogfLEController, ocfSetAdvertisingEnable, []byte{0x01}); err != nil {
		log.Warnf("hci: enable command failed: %v", err)
		return err
	}

	log.Debug("hci: advertising interval tuned")
	return nil
}

// sendCommand builds and writes one HCI command packet:
// [0x01][opcode_le:2][param_len:1][params...], where
// opcode = (ogf << 10) | ocf.
func sendCommand(fd int, ogf, ocf uint16, params []byte) error {
	opcode := (ogf << 10) | ocf

	pkt := make([]byte, 4+len(params))
	pkt[0] = hciCommandPkt
	binary.LittleEndian.PutUint16(pkt[1:3], opcode)
	pkt[3] = byte(len(params))
	copy(pkt[4:], params)

	_, err := unix.Write(fd, pkt)
	return err
}

// rawSockaddrHCI mirrors the kernel's struct sockaddr_hci.
type rawSockaddrHCI struct {
	Family  uint16
	Dev     uint16
	Channel uint16
}

const btprotoHCI = 1

func bindHCIDevice(fd int, deviceID int) error {
	sa := rawSockaddrHCI{
		Family: unix.AF_BLUETOOTH,
		Dev:    uint16(deviceID),
	}
	_, _, errno := unix.Syscall(unix.SYS_BIND, uintptr(fd), uintptr(unsafe.Pointer(&sa)), unsafe.Sizeof(sa))
	if errno != 0 {
		return errno
	}
	return nil
}
