package hotplug

import (
	"fmt"
	"slices"
	"time"
)

// ID is a USB vendor/product pair.
type ID struct {
	Vendor  uint16
	Product uint16
}

func (id ID) String() string {
	return fmt.Sprintf("%04x:%04x", id.Vendor, id.Product)
}

// IdentitySet lists the products of one vendor that count as the tracked
// device.
type IdentitySet struct {
	Vendor   uint16
	Products []uint16
}

// VitureDevices covers every Viture glasses model with an IMU.
var VitureDevices = IdentitySet{
	Vendor: 0x35ca,
	Products: []uint16{
		0x1011, // One
		0x1013, // One
		0x1017, // One
		0x1015, // One Lite
		0x101b, // One Lite
		0x1019, // Pro
		0x101d, // Pro
	},
}

func (s IdentitySet) Matches(id ID) bool {
	return id.Vendor == s.Vendor && slices.Contains(s.Products, id.Product)
}

type Kind int

const (
	Arrived Kind = iota
	Left
)

func (k Kind) String() string {
	switch k {
	case Arrived:
		return "arrived"
	case Left:
		return "left"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event reports a matching device being plugged in or removed.
type Event struct {
	Kind   Kind
	Device ID
}

// Watcher produces hotplug events for one IdentitySet. It is driven by a
// single goroutine that alternates HandleEvents and draining Events.
type Watcher interface {
	// Events delivers matching arrival and departure events.
	Events() <-chan Event
	// HandleEvents services pending kernel notifications, waiting at most
	// timeout for one to arrive.
	HandleEvents(timeout time.Duration) error
	// Close unregisters the watcher and releases its resources.
	Close() error
}
