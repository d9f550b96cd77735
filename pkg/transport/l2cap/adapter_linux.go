//go:build linux

package l2cap

import (
	"fmt"
	"strings"

	dbus "github.com/godbus/dbus/v5"

	"btlink/pkg/transport"
)

const (
	bluezService    = "org.bluez"
	adapterIface    = "org.bluez.Adapter1"
	objManagerIface = "org.freedesktop.DBus.ObjectManager"
	propsIface      = "org.freedesktop.DBus.Properties"
)

// adapter is a handle on one BlueZ Adapter1 object. It exists for the
// availability check at startup and for discovery housekeeping before an
// outbound connect; the data path never touches D-Bus.
type adapter struct {
	bus     *dbus.Conn
	path    dbus.ObjectPath
	address string
}

// openAdapter locates a powered adapter. With a non-empty name (e.g. "hci0")
// only that adapter is considered.
func openAdapter(name string) (*adapter, error) {
	bus, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("l2cap: connect system bus: %w", transport.ErrAdapterUnavailable)
	}

	obj := bus.Object(bluezService, dbus.ObjectPath("/"))
	var objs map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if call := obj.Call(objManagerIface+".GetManagedObjects", 0); call.Err != nil {
		bus.Close()
		return nil, fmt.Errorf("l2cap: GetManagedObjects: %v: %w", call.Err, transport.ErrAdapterUnavailable)
	} else if err := call.Store(&objs); err != nil {
		bus.Close()
		return nil, fmt.Errorf("l2cap: decode GetManagedObjects: %v: %w", err, transport.ErrAdapterUnavailable)
	}

	for path, ifaces := range objs {
		props, ok := ifaces[adapterIface]
		if !ok {
			continue
		}
		if name != "" && !strings.HasSuffix(string(path), "/"+name) {
			continue
		}
		powered := false
		if v, ok := props["Powered"]; ok {
			powered, _ = v.Value().(bool)
		}
		if !powered {
			continue
		}
		addr := ""
		if v, ok := props["Address"]; ok {
			addr, _ = v.Value().(string)
		}
		return &adapter{bus: bus, path: path, address: addr}, nil
	}

	bus.Close()
	if name != "" {
		return nil, fmt.Errorf("l2cap: adapter %q not found or not powered: %w", name, transport.ErrAdapterUnavailable)
	}
	return nil, fmt.Errorf("l2cap: no powered adapter: %w", transport.ErrAdapterUnavailable)
}

// cancelDiscovery stops an in-progress device discovery. Best-effort:
// BlueZ returns an error when no discovery is running, which is fine.
func (a *adapter) cancelDiscovery() {
	_ = a.bus.Object(bluezService, a.path).Call(adapterIface+".StopDiscovery", 0).Err
}

func (a *adapter) close() error {
	return a.bus.Close()
}
