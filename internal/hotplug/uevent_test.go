package hotplug

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uevent(header string, env ...string) []byte {
	return []byte(header + "\x00" + strings.Join(env, "\x00") + "\x00")
}

func TestParseUevent(t *testing.T) {
	tests := map[string]struct {
		msg  []byte
		want Event
		ok   bool
	}{
		"add device": {
			msg: uevent("add@/devices/pci0000:00/0000:00:14.0/usb1/1-2",
				"ACTION=add", "SUBSYSTEM=usb", "DEVTYPE=usb_device", "PRODUCT=35ca/1011/100", "SEQNUM=42"),
			want: Event{Kind: Arrived, Device: ID{Vendor: 0x35ca, Product: 0x1011}},
			ok:   true,
		},
		"remove device": {
			msg: uevent("remove@/devices/pci0000:00/0000:00:14.0/usb1/1-2",
				"ACTION=remove", "SUBSYSTEM=usb", "DEVTYPE=usb_device", "PRODUCT=35ca/101d/1"),
			want: Event{Kind: Left, Device: ID{Vendor: 0x35ca, Product: 0x101d}},
			ok:   true,
		},
		"leading zeros stripped": {
			msg: uevent("add@/devices/usb1/1-1",
				"ACTION=add", "SUBSYSTEM=usb", "DEVTYPE=usb_device", "PRODUCT=46d/c52b/1211"),
			want: Event{Kind: Arrived, Device: ID{Vendor: 0x046d, Product: 0xc52b}},
			ok:   true,
		},
		"interface": {
			msg: uevent("add@/devices/usb1/1-2/1-2:1.0",
				"ACTION=add", "SUBSYSTEM=usb", "DEVTYPE=usb_interface", "PRODUCT=35ca/1011/100"),
		},
		"bind action": {
			msg: uevent("bind@/devices/usb1/1-2",
				"ACTION=bind", "SUBSYSTEM=usb", "DEVTYPE=usb_device", "PRODUCT=35ca/1011/100"),
		},
		"other subsystem": {
			msg: uevent("add@/devices/virtual/net/tun0", "ACTION=add", "SUBSYSTEM=net"),
		},
		"bad product": {
			msg: uevent("add@/devices/usb1/1-2",
				"ACTION=add", "SUBSYSTEM=usb", "DEVTYPE=usb_device", "PRODUCT=zz/1011/100"),
		},
		"missing product": {
			msg: uevent("add@/devices/usb1/1-2", "ACTION=add", "SUBSYSTEM=usb", "DEVTYPE=usb_device"),
		},
		"udev broadcast": {
			msg: []byte("libudev\x00\xfe\xed\xca\xfe"),
		},
		"empty": {msg: nil},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, ok := ParseUevent(tt.msg)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestIdentitySetMatches(t *testing.T) {
	assert.True(t, VitureDevices.Matches(ID{Vendor: 0x35ca, Product: 0x1015}))
	assert.True(t, VitureDevices.Matches(ID{Vendor: 0x35ca, Product: 0x101d}))
	assert.False(t, VitureDevices.Matches(ID{Vendor: 0x35ca, Product: 0x2000}))
	assert.False(t, VitureDevices.Matches(ID{Vendor: 0x1d6b, Product: 0x1011}))
}

func writeDevice(t *testing.T, root, name, vendor, product string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	if vendor != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "idVendor"), []byte(vendor+"\n"), 0o644))
	}
	if product != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "idProduct"), []byte(product+"\n"), 0o644))
	}
}

func TestEnumerate(t *testing.T) {
	root := t.TempDir()
	writeDevice(t, root, "usb1", "1d6b", "0002")
	writeDevice(t, root, "1-2", "35ca", "1019")
	writeDevice(t, root, "1-2:1.0", "", "")
	writeDevice(t, root, "1-3", "35ca", "9999")
	writeDevice(t, root, "1-4", "046d", "c52b")
	writeDevice(t, root, "1-5", "35ca", "")

	found, err := Enumerate(root, VitureDevices)
	require.NoError(t, err)
	assert.Equal(t, []ID{{Vendor: 0x35ca, Product: 0x1019}}, found)
}

func TestEnumerateMissingRoot(t *testing.T) {
	_, err := Enumerate(filepath.Join(t.TempDir(), "missing"), VitureDevices)
	require.Error(t, err)
}

func TestIDAndKindString(t *testing.T) {
	assert.Equal(t, "35ca:1011", ID{Vendor: 0x35ca, Product: 0x1011}.String())
	assert.Equal(t, "arrived", Arrived.String())
	assert.Equal(t, "left", Left.String())
}
