package wpa

import (
	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
	"net"
)

type BSS struct {
	obj dbus.BusObject
}

func (b *BSS) String() string {
	return string(b.obj.Path())
}

// Bss is a snapshot of the properties of a BSS.
type Bss struct {
	Ssid      string
	Bssid     string
	Signal    int
	Frequency int
	Privacy   bool
	Wpa       bool
	Rsn       bool
	Sae       bool
}

func (b *BSS) GetAll() (*Bss, error) {
	call := b.obj.Call(propertiesIface+".GetAll", 0, bssIface)
	if call.Err != nil {
		return nil, errors.Errorf("could not get all properties: %v", call.Err)
	}

	props, ok := call.Body[0].(map[string]dbus.Variant)
	if !ok {
		return nil, errors.Errorf("could not convert output")
	}

	return parseBss(props)
}

func parseBss(props map[string]dbus.Variant) (*Bss, error) {
	bss := Bss{}

	if val, ok := props["SSID"]; ok {
		if ssid, ok := val.Value().([]byte); ok {
			bss.Ssid = string(ssid)
		} else {
			return nil, errors.Errorf("could not convert SSID to string: %v", val)
		}
	} else {
		return nil, errors.Errorf("mandatory property SSID was missing")
	}

	if val, ok := props["BSSID"]; ok {
		if bssid, ok := val.Value().([]byte); ok {
			bss.Bssid = net.HardwareAddr(bssid).String()
		} else {
			return nil, errors.Errorf("could not convert BSSID to string: %v", val)
		}
	} else {
		return nil, errors.Errorf("mandatory property BSSID was missing")
	}

	if val, ok := props["Signal"]; ok {
		if signal, ok := val.Value().(int16); ok {
			bss.Signal = int(signal)
		}
	}

	if val, ok := props["Frequency"]; ok {
		if freq, ok := val.Value().(uint16); ok {
			bss.Frequency = int(freq)
		}
	}

	if val, ok := props["Privacy"]; ok {
		if privacy, ok := val.Value().(bool); ok {
			bss.Privacy = privacy
		}
	}

	wpaMgmt := keyMgmt(props["WPA"])
	rsnMgmt := keyMgmt(props["RSN"])

	bss.Wpa = len(wpaMgmt) > 0
	bss.Rsn = len(rsnMgmt) > 0

	for _, mgmt := range rsnMgmt {
		if mgmt == "sae" {
			bss.Sae = true
		}
	}

	return &bss, nil
}

// keyMgmt extracts the key management suites of a WPA or RSN property.
func keyMgmt(val dbus.Variant) []string {
	ie, ok := val.Value().(map[string]dbus.Variant)
	if !ok {
		return nil
	}

	mgmt, ok := ie["KeyMgmt"].Value().([]string)
	if !ok {
		return nil
	}

	return mgmt
}
