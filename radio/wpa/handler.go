package wpa

import "github.com/godbus/dbus/v5"

// wpaSignalHandler receives every signal of the connection on the bus reader
// goroutine and queues it for routing.
type wpaSignalHandler struct {
	wpa *Wpa
}

var _ dbus.SignalHandler = (*wpaSignalHandler)(nil)

func (h wpaSignalHandler) DeliverSignal(iface, name string, signal *dbus.Signal) {
	h.wpa.deliverSignal(iface, name, signal)
}
