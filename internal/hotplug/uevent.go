package hotplug

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/mutker/viturectl/internal/errors"
)

// SysfsUSBDevices is where the kernel lists attached USB devices.
const SysfsUSBDevices = "/sys/bus/usb/devices"

// ParseUevent decodes a kernel uevent for a whole USB device. Interface
// events, other subsystems and actions other than add/remove are rejected.
func ParseUevent(msg []byte) (Event, bool) {
	fields := bytes.Split(msg, []byte{0})
	if len(fields) < 2 || !bytes.Contains(fields[0], []byte("@")) {
		return Event{}, false
	}

	env := make(map[string]string, len(fields))
	for _, field := range fields[1:] {
		key, value, ok := strings.Cut(string(field), "=")
		if ok {
			env[key] = value
		}
	}

	if env["SUBSYSTEM"] != "usb" || env["DEVTYPE"] != "usb_device" {
		return Event{}, false
	}

	var kind Kind
	switch env["ACTION"] {
	case "add":
		kind = Arrived
	case "remove":
		kind = Left
	default:
		return Event{}, false
	}

	id, ok := parseProduct(env["PRODUCT"])
	if !ok {
		return Event{}, false
	}

	return Event{Kind: kind, Device: id}, true
}

// parseProduct reads the PRODUCT variable, formatted "vid/pid/bcdDevice" in
// hex without leading zeros.
func parseProduct(product string) (ID, bool) {
	parts := strings.Split(product, "/")
	if len(parts) < 2 {
		return ID{}, false
	}

	vendor, err := strconv.ParseUint(parts[0], 16, 16)
	if err != nil {
		return ID{}, false
	}
	prod, err := strconv.ParseUint(parts[1], 16, 16)
	if err != nil {
		return ID{}, false
	}

	return ID{Vendor: uint16(vendor), Product: uint16(prod)}, true
}

// Enumerate lists the already-attached devices under root that belong to ids.
func Enumerate(root string, ids IdentitySet) ([]ID, error) {
	errFactory := errors.New()

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errFactory.Wrap(ErrEnumerateFailed, err)
	}

	var found []ID
	for _, entry := range entries {
		dir := filepath.Join(root, entry.Name())

		vendor, ok := readHexID(filepath.Join(dir, "idVendor"))
		if !ok {
			continue
		}
		product, ok := readHexID(filepath.Join(dir, "idProduct"))
		if !ok {
			continue
		}

		id := ID{Vendor: vendor, Product: product}
		if ids.Matches(id) {
			found = append(found, id)
		}
	}

	return found, nil
}

func readHexID(path string) (uint16, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}

	v, err := strconv.ParseUint(strings.TrimSpace(string(b)), 16, 16)
	if err != nil {
		return 0, false
	}

	return uint16(v), true
}
