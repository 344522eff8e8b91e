// Package wpa is a small client for the wpa_supplicant D-Bus API.
package wpa

import (
	"sync"

	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
)

const (
	service         = "fi.w1.wpa_supplicant1"
	servicePath     = "/fi/w1/wpa_supplicant1"
	interfaceIface  = "fi.w1.wpa_supplicant1.Interface"
	bssIface        = "fi.w1.wpa_supplicant1.BSS"
	networkIface    = "fi.w1.wpa_supplicant1.Network"
	stationIface    = "fi.w1.wpa_supplicant1.Station"
	propertiesIface = "org.freedesktop.DBus.Properties"

	// signals are handed from the bus reader to a single worker, so that
	// subscribers are free to call back into the bus
	signalBacklog = 256
)

type subscription struct {
	path   dbus.ObjectPath
	iface  string
	member string
	fn     func(*dbus.Signal)
}

type Wpa struct {
	conn          *dbus.Conn
	obj           dbus.BusObject
	signals       chan *dbus.Signal
	done          chan struct{}
	subsMtx       sync.Mutex
	subscriptions map[uint32]*subscription
	nextID        uint32
}

func New() *Wpa {
	return &Wpa{
		subscriptions: make(map[uint32]*subscription),
	}
}

func (w *Wpa) Start() error {
	w.signals = make(chan *dbus.Signal, signalBacklog)
	w.done = make(chan struct{})

	conn, err := dbus.ConnectSystemBus(dbus.WithSignalHandler(wpaSignalHandler{w}))
	if err != nil {
		return errors.Errorf("could not connect to system bus: %v", err)
	}

	w.conn = conn
	w.obj = conn.Object(service, servicePath)

	go w.routeSignals()

	return nil
}

func (w *Wpa) Stop() error {
	if w.conn == nil {
		return nil
	}

	err := w.conn.Close()
	close(w.done)
	w.conn = nil

	if err != nil {
		return errors.Errorf("could not close system bus: %v", err)
	}

	return nil
}

// GetInterface returns the interface wpa_supplicant already manages for ifname.
func (w *Wpa) GetInterface(ifname string) (*Interface, error) {
	var path dbus.ObjectPath

	err := w.obj.Call(service+".GetInterface", 0, ifname).Store(&path)
	if err != nil {
		return nil, errors.Errorf("could not get interface %v: %v", ifname, err)
	}

	return w.newInterface(path), nil
}

// CreateInterface asks wpa_supplicant to start managing ifname.
func (w *Wpa) CreateInterface(ifname string) (*Interface, error) {
	var path dbus.ObjectPath

	err := w.obj.Call(service+".CreateInterface", 0, map[string]interface{}{
		"Ifname": ifname,
	}).Store(&path)
	if err != nil {
		return nil, errors.Errorf("could not create interface %v: %v", ifname, err)
	}

	return w.newInterface(path), nil
}

func (w *Wpa) newInterface(path dbus.ObjectPath) *Interface {
	return &Interface{
		wpa: w,
		obj: w.conn.Object(service, path),
	}
}

// subscribe registers fn for the given signal emitted by the object at path.
// The returned function removes the subscription again.
func (w *Wpa) subscribe(path dbus.ObjectPath, iface string, member string, fn func(*dbus.Signal)) (func(), error) {
	err := w.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(iface),
		dbus.WithMatchMember(member),
	)
	if err != nil {
		return nil, errors.Errorf("could not add %v signal match: %v", member, err)
	}

	w.subsMtx.Lock()
	id := w.nextID
	w.nextID++
	w.subscriptions[id] = &subscription{
		path:   path,
		iface:  iface,
		member: member,
		fn:     fn,
	}
	w.subsMtx.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			w.subsMtx.Lock()
			delete(w.subscriptions, id)
			w.subsMtx.Unlock()

			_ = w.conn.RemoveMatchSignal(
				dbus.WithMatchObjectPath(path),
				dbus.WithMatchInterface(iface),
				dbus.WithMatchMember(member),
			)
		})
	}, nil
}

func (w *Wpa) deliverSignal(iface, name string, signal *dbus.Signal) {
	select {
	case w.signals <- signal:
	case <-w.done:
	}
}

func (w *Wpa) routeSignals() {
	for {
		select {
		case signal := <-w.signals:
			for _, fn := range w.matching(signal) {
				fn(signal)
			}
		case <-w.done:
			return
		}
	}
}

func (w *Wpa) matching(signal *dbus.Signal) []func(*dbus.Signal) {
	w.subsMtx.Lock()
	defer w.subsMtx.Unlock()

	var fns []func(*dbus.Signal)

	for _, sub := range w.subscriptions {
		if sub.path == signal.Path && signal.Name == sub.iface+"."+sub.member {
			fns = append(fns, sub.fn)
		}
	}

	return fns
}
