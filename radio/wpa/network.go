package wpa

import (
	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
)

// NetworkConfig holds wpa_supplicant network block settings, for example
// "ssid", "psk", "key_mgmt" or "mode".
type NetworkConfig map[string]interface{}

// ModeAccessPoint is the network block mode for hosting an access point.
const ModeAccessPoint = uint32(2)

type Network struct {
	wpa *Wpa
	obj dbus.BusObject
}

func (n *Network) String() string {
	return string(n.obj.Path())
}

// Properties returns the network block as wpa_supplicant reports it. All
// values are reported as strings.
func (n *Network) Properties() (map[string]string, error) {
	v, err := n.obj.GetProperty(networkIface + ".Properties")
	if err != nil {
		return nil, errors.Errorf("could not get network properties: %v", err)
	}

	raw, ok := v.Value().(map[string]dbus.Variant)
	if !ok {
		return nil, errors.Errorf("could not convert network properties: %v", v)
	}

	props := make(map[string]string, len(raw))
	for key, val := range raw {
		if s, ok := val.Value().(string); ok {
			props[key] = s
		}
	}

	return props, nil
}

// IsAccessPoint reports whether the network block hosts an access point.
func (n *Network) IsAccessPoint() (bool, error) {
	props, err := n.Properties()
	if err != nil {
		return false, err
	}

	return props["mode"] == "2", nil
}
