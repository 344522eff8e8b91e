package wpa

import (
	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
)

// Supplicant interface states as reported by the State property.
const (
	StateDisconnected      = "disconnected"
	StateInactive          = "inactive"
	StateScanning          = "scanning"
	StateAuthenticating    = "authenticating"
	StateAssociating       = "associating"
	StateAssociated        = "associated"
	StateFourWayHandshake  = "4way_handshake"
	StateGroupHandshake    = "group_handshake"
	StateCompleted         = "completed"
	StateInterfaceDisabled = "interface_disabled"
	StateUnknown           = "unknown"
)

type Interface struct {
	wpa *Wpa
	obj dbus.BusObject
}

func (i *Interface) String() string {
	return string(i.obj.Path())
}

func (i *Interface) Scan() error {
	call := i.obj.Call(interfaceIface+".Scan", 0, map[string]interface{}{
		"Type": "active",
	})
	if call.Err != nil {
		return errors.Errorf("could not scan: %v", call.Err)
	}

	return nil
}

func (i *Interface) Disconnect() error {
	call := i.obj.Call(interfaceIface+".Disconnect", 0)
	if call.Err != nil {
		return errors.Errorf("could not disconnect: %v", call.Err)
	}

	return nil
}

func (i *Interface) State() (string, error) {
	v, err := i.obj.GetProperty(interfaceIface + ".State")
	if err != nil {
		return "", errors.Errorf("could not get state: %v", err)
	}

	state, ok := v.Value().(string)
	if !ok {
		return "", errors.Errorf("could not convert state: %v", v)
	}

	return state, nil
}

// CurrentNetwork returns the selected network block, or nil if there is none.
func (i *Interface) CurrentNetwork() (*Network, error) {
	v, err := i.obj.GetProperty(interfaceIface + ".CurrentNetwork")
	if err != nil {
		return nil, errors.Errorf("could not get current network: %v", err)
	}

	path, ok := v.Value().(dbus.ObjectPath)
	if !ok {
		return nil, errors.Errorf("could not convert current network: %v", v)
	}

	if path == "/" || path == "" {
		return nil, nil
	}

	return &Network{
		wpa: i.wpa,
		obj: i.wpa.conn.Object(service, path),
	}, nil
}

func (i *Interface) BSSs() ([]*BSS, error) {
	v, err := i.obj.GetProperty(interfaceIface + ".BSSs")
	if err != nil {
		return nil, errors.Errorf("could not get bsss: %v", err)
	}

	objectPaths, ok := v.Value().([]dbus.ObjectPath)
	if !ok {
		return nil, errors.Errorf("could not convert result: %v", v)
	}

	var bsss []*BSS

	for _, objectPath := range objectPaths {
		bsss = append(bsss, &BSS{
			obj: i.wpa.conn.Object(service, objectPath),
		})
	}

	return bsss, nil
}

// Stations lists the clients attached while the interface hosts an access point.
func (i *Interface) Stations() ([]*Station, error) {
	v, err := i.obj.GetProperty(interfaceIface + ".Stations")
	if err != nil {
		return nil, errors.Errorf("could not get stations: %v", err)
	}

	objectPaths, ok := v.Value().([]dbus.ObjectPath)
	if !ok {
		return nil, errors.Errorf("could not convert result: %v", v)
	}

	var stations []*Station

	for _, objectPath := range objectPaths {
		stations = append(stations, &Station{
			obj: i.wpa.conn.Object(service, objectPath),
		})
	}

	return stations, nil
}

func (i *Interface) AddNetwork(config NetworkConfig) (*Network, error) {
	call := i.obj.Call(interfaceIface+".AddNetwork", 0, map[string]interface{}(config))
	if call.Err != nil {
		return nil, errors.Errorf("could not add network: %v", call.Err)
	}

	var objPath dbus.ObjectPath
	err := call.Store(&objPath)
	if err != nil {
		return nil, errors.Errorf("could not store value: %v", err)
	}

	return &Network{
		wpa: i.wpa,
		obj: i.wpa.conn.Object(service, objPath),
	}, nil
}

func (i *Interface) SelectNetwork(net *Network) error {
	call := i.obj.Call(interfaceIface+".SelectNetwork", 0, net.obj.Path())
	if call.Err != nil {
		return errors.Errorf("could not select network: %v", call.Err)
	}

	return nil
}

func (i *Interface) RemoveNetwork(net *Network) error {
	call := i.obj.Call(interfaceIface+".RemoveNetwork", 0, net.obj.Path())
	if call.Err != nil {
		return errors.Errorf("could not remove network: %v", call.Err)
	}

	return nil
}

func (i *Interface) RemoveAllNetworks() error {
	call := i.obj.Call(interfaceIface+".RemoveAllNetworks", 0)
	if call.Err != nil {
		return errors.Errorf("could not remove all networks: %v", call.Err)
	}

	return nil
}

// OnScanDone calls fn with the success flag whenever a scan finishes.
func (i *Interface) OnScanDone(fn func(success bool)) (func(), error) {
	return i.wpa.subscribe(i.obj.Path(), interfaceIface, "ScanDone", func(signal *dbus.Signal) {
		if len(signal.Body) < 1 {
			return
		}

		if success, ok := signal.Body[0].(bool); ok {
			fn(success)
		}
	})
}

// OnPropertiesChanged calls fn with the changed interface properties.
func (i *Interface) OnPropertiesChanged(fn func(map[string]dbus.Variant)) (func(), error) {
	return i.wpa.subscribe(i.obj.Path(), interfaceIface, "PropertiesChanged", func(signal *dbus.Signal) {
		if len(signal.Body) < 1 {
			return
		}

		if props, ok := signal.Body[0].(map[string]dbus.Variant); ok {
			fn(props)
		}
	})
}

// OnStationsChanged calls fn whenever a station attaches or detaches.
func (i *Interface) OnStationsChanged(fn func()) (func(), error) {
	cancelAdded, err := i.wpa.subscribe(i.obj.Path(), interfaceIface, "StationAdded", func(*dbus.Signal) {
		fn()
	})
	if err != nil {
		return nil, err
	}

	cancelRemoved, err := i.wpa.subscribe(i.obj.Path(), interfaceIface, "StationRemoved", func(*dbus.Signal) {
		fn()
	})
	if err != nil {
		cancelAdded()
		return nil, err
	}

	return func() {
		cancelAdded()
		cancelRemoved()
	}, nil
}
