package wpa

import (
	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
	"net"
)

// Station is a client attached to an access point hosted by wpa_supplicant.
type Station struct {
	obj dbus.BusObject
}

func (s *Station) String() string {
	return string(s.obj.Path())
}

func (s *Station) Address() (string, error) {
	v, err := s.obj.GetProperty(stationIface + ".Address")
	if err != nil {
		return "", errors.Errorf("could not get station address: %v", err)
	}

	addr, ok := v.Value().([]byte)
	if !ok {
		return "", errors.Errorf("could not convert station address: %v", v)
	}

	return net.HardwareAddr(addr).String(), nil
}
