package radio

import (
	"context"
	"sync"

	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
	"github.com/the-lightning-land/wifid/radio/wpa"
)

// check WpaRadio compliance to its interface during compile time
var _ Radio = (*WpaRadio)(nil)

type WpaRadioConfig struct {
	Interface string
	// Leases is an optional dnsmasq leases file used to name clients.
	Leases string
	Logger Logger
}

type role int

const (
	roleNone role = iota
	roleStation
	roleAccessPoint
)

// WpaRadio drives a wireless interface through wpa_supplicant. Client mode
// and access point mode share the same supplicant interface, the radio keeps
// track of which role the selected network block plays.
type WpaRadio struct {
	log     Logger
	wpa     *wpa.Wpa
	ifname  string
	leases  string
	iface   *wpa.Interface
	cancels []func()

	mu      sync.Mutex
	handler Handler
	role    role
	network *wpa.Network
	module  ModuleState
	ap      ApState
	net     NetState
}

func NewWpaRadio(config *WpaRadioConfig) *WpaRadio {
	r := &WpaRadio{
		ifname: config.Interface,
		leases: config.Leases,
		wpa:    wpa.New(),
		module: ModuleUnknown,
		ap:     ApDisabled,
		net:    Disconnected,
	}

	if config.Logger != nil {
		r.log = config.Logger
	} else {
		r.log = noopLogger{}
	}

	return r
}

func (r *WpaRadio) Start(h Handler) error {
	err := r.wpa.Start()
	if err != nil {
		return errors.Errorf("could not start wpa: %v", err)
	}

	iface, err := r.wpa.GetInterface(r.ifname)
	if err != nil {
		r.log.Infof("interface %v not managed yet, creating it: %v", r.ifname, err)

		iface, err = r.wpa.CreateInterface(r.ifname)
		if err != nil {
			_ = r.wpa.Stop()
			return errors.Errorf("could not find interface %v: %v", r.ifname, err)
		}
	}

	r.iface = iface

	for _, subscribe := range []func() (func(), error){
		func() (func(), error) { return iface.OnPropertiesChanged(r.handleProperties) },
		func() (func(), error) { return iface.OnScanDone(r.handleScanDone) },
		func() (func(), error) { return iface.OnStationsChanged(r.handleStationsChanged) },
	} {
		cancel, err := subscribe()
		if err != nil {
			_ = r.Stop()
			return errors.Errorf("could not subscribe to %v: %v", r.ifname, err)
		}

		r.cancels = append(r.cancels, cancel)
	}

	r.mu.Lock()
	r.handler = h
	r.mu.Unlock()

	r.detect()

	r.mu.Lock()
	module, ap, net := r.module, r.ap, r.net
	r.mu.Unlock()

	h.HandleModuleState(module)
	h.HandleApState(ap)
	h.HandleNetState(net)

	return nil
}

// detect derives the initial states from the link flags and the network
// block wpa_supplicant currently has selected.
func (r *WpaRadio) detect() {
	up, err := linkUp(r.ifname)
	if err != nil {
		r.log.Warnf("could not read link state of %v: %v", r.ifname, err)
		return
	}

	state, err := r.iface.State()
	if err != nil {
		r.log.Warnf("could not read supplicant state: %v", err)
		return
	}

	current, err := r.iface.CurrentNetwork()
	if err != nil {
		r.log.Warnf("could not read current network: %v", err)
	}

	isAp := false
	if current != nil {
		isAp, err = current.IsAccessPoint()
		if err != nil {
			r.log.Warnf("could not read current network mode: %v", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.network = current

	switch {
	case !up || state == wpa.StateInterfaceDisabled:
		r.role = roleNone
		r.module = ModuleDisabled
	case isAp:
		r.role = roleAccessPoint
		r.module = ModuleDisabled
		if state == wpa.StateCompleted {
			r.ap = ApEnabled
		} else {
			r.ap = ApEnabling
		}
	default:
		r.role = roleStation
		r.module = ModuleEnabled
		if net, ok := stationState(state); ok {
			r.net = net
		}
	}
}

func (r *WpaRadio) Stop() error {
	for _, cancel := range r.cancels {
		cancel()
	}
	r.cancels = nil

	r.mu.Lock()
	r.handler = nil
	r.mu.Unlock()

	err := r.wpa.Stop()
	if err != nil {
		return errors.Errorf("could not stop wpa: %v", err)
	}

	return nil
}

func (r *WpaRadio) SetModuleEnabled(ctx context.Context, enabled bool) error {
	if r.iface == nil {
		return errors.Errorf("radio not started: %w", ErrRadioUnavailable)
	}

	if enabled {
		r.mu.Lock()
		if r.role == roleAccessPoint {
			r.mu.Unlock()
			return errors.Errorf("interface %v is hosting an access point: %w", r.ifname, ErrModeConflict)
		}
		r.mu.Unlock()

		r.reportModule(ModuleEnabling)

		err := setLinkUp(r.ifname, true)
		if err != nil {
			r.reportModule(ModuleDisabled)
			return errors.Errorf("could not bring up %v: %v: %w", r.ifname, err, ErrRadioUnavailable)
		}

		r.mu.Lock()
		r.role = roleStation
		r.mu.Unlock()

		r.reportModule(ModuleEnabled)

		return nil
	}

	r.reportModule(ModuleDisabling)

	r.mu.Lock()
	wasStation := r.role == roleStation
	if wasStation {
		r.role = roleNone
		r.network = nil
	}
	r.mu.Unlock()

	if wasStation {
		if err := r.iface.Disconnect(); err != nil {
			r.log.Debugf("could not disconnect: %v", err)
		}

		if err := r.iface.RemoveAllNetworks(); err != nil {
			r.log.Warnf("could not remove networks: %v", err)
		}

		if err := setLinkUp(r.ifname, false); err != nil {
			r.log.Warnf("could not bring down %v: %v", r.ifname, err)
		}
	}

	r.reportModule(ModuleDisabled)
	r.reportNet(Disconnected)

	return nil
}

func (r *WpaRadio) Scan(ctx context.Context) error {
	r.mu.Lock()
	module := r.module
	r.mu.Unlock()

	if module != ModuleEnabled {
		return errors.Errorf("cannot scan with module %v: %w", module, ErrRadioUnavailable)
	}

	err := r.iface.Scan()
	if err != nil {
		return errors.Errorf("unable to scan: %v: %w", err, ErrRadioUnavailable)
	}

	return nil
}

func (r *WpaRadio) Connect(ctx context.Context, d Descriptor) error {
	config, err := stationConfig(d)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.role != roleStation || r.module != ModuleEnabled {
		r.mu.Unlock()
		return errors.Errorf("cannot connect with module %v: %w", r.module, ErrRadioUnavailable)
	}
	previous := r.network
	r.network = nil
	r.mu.Unlock()

	if previous != nil {
		if err := r.iface.RemoveNetwork(previous); err != nil {
			r.log.Debugf("could not remove previous network %v: %v", previous, err)
		}
	}

	network, err := r.iface.AddNetwork(config)
	if err != nil {
		return errors.Errorf("could not add network %v: %v", d.Ssid, err)
	}

	r.mu.Lock()
	r.network = network
	r.mu.Unlock()

	err = r.iface.SelectNetwork(network)
	if err != nil {
		return errors.Errorf("could not select network %v: %v", d.Ssid, err)
	}

	return nil
}

func (r *WpaRadio) Disconnect(ctx context.Context) error {
	r.mu.Lock()
	isStation := r.role == roleStation
	r.mu.Unlock()

	if !isStation {
		return nil
	}

	r.reportNet(Disconnecting)

	err := r.iface.Disconnect()
	if err != nil {
		return errors.Errorf("could not disconnect: %v", err)
	}

	return nil
}

func (r *WpaRadio) StartAccessPoint(ctx context.Context, d Descriptor) error {
	config, err := accessPointConfig(d)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.role == roleStation {
		r.mu.Unlock()
		return errors.Errorf("interface %v is in client mode: %w", r.ifname, ErrModeConflict)
	}
	r.role = roleAccessPoint
	r.mu.Unlock()

	r.reportAp(ApEnabling)

	fail := func(err error) error {
		r.mu.Lock()
		r.role = roleNone
		r.network = nil
		r.mu.Unlock()

		r.reportAp(ApFailed)

		return err
	}

	if err := setLinkUp(r.ifname, true); err != nil {
		return fail(errors.Errorf("could not bring up %v: %v: %w", r.ifname, err, ErrRadioUnavailable))
	}

	if err := r.iface.RemoveAllNetworks(); err != nil {
		r.log.Warnf("could not remove networks: %v", err)
	}

	network, err := r.iface.AddNetwork(config)
	if err != nil {
		return fail(errors.Errorf("could not add access point %v: %v", d.Ssid, err))
	}

	r.mu.Lock()
	r.network = network
	r.mu.Unlock()

	err = r.iface.SelectNetwork(network)
	if err != nil {
		return fail(errors.Errorf("could not select access point %v: %v", d.Ssid, err))
	}

	return nil
}

func (r *WpaRadio) StopAccessPoint(ctx context.Context) error {
	r.mu.Lock()
	if r.role != roleAccessPoint {
		r.mu.Unlock()
		return nil
	}
	network := r.network
	r.network = nil
	r.mu.Unlock()

	r.reportAp(ApDisabling)

	if err := r.iface.Disconnect(); err != nil {
		r.log.Debugf("could not disconnect access point: %v", err)
	}

	if network != nil {
		if err := r.iface.RemoveNetwork(network); err != nil {
			r.log.Warnf("could not remove access point network: %v", err)
		}
	}

	if err := setLinkUp(r.ifname, false); err != nil {
		r.log.Warnf("could not bring down %v: %v", r.ifname, err)
	}

	r.mu.Lock()
	r.role = roleNone
	r.mu.Unlock()

	r.reportAp(ApDisabled)

	return nil
}

func (r *WpaRadio) ConnectedClients(ctx context.Context) ([]Client, error) {
	r.mu.Lock()
	isAp := r.role == roleAccessPoint
	r.mu.Unlock()

	if !isAp {
		return nil, errors.Errorf("interface %v is not hosting: %w", r.ifname, ErrRadioUnavailable)
	}

	stations, err := r.iface.Stations()
	if err != nil {
		return nil, errors.Errorf("could not list stations: %v", err)
	}

	names := map[string]string{}
	if r.leases != "" {
		names, err = readLeases(r.leases)
		if err != nil {
			r.log.Debugf("could not read leases: %v", err)
		}
	}

	var clients []Client

	for _, station := range stations {
		addr, err := station.Address()
		if err != nil {
			r.log.Warnf("skipping station %v: %v", station, err)
			continue
		}

		clients = append(clients, Client{
			Address: addr,
			Name:    names[addr],
		})
	}

	return clients, nil
}

func (r *WpaRadio) handleProperties(props map[string]dbus.Variant) {
	val, ok := props["State"]
	if !ok {
		return
	}

	state, ok := val.Value().(string)
	if !ok {
		r.log.Warnf("could not convert state %v: %v", val, ErrInvalidState)
		return
	}

	r.mu.Lock()
	current, ap := r.role, r.ap
	r.mu.Unlock()

	switch current {
	case roleStation:
		net, ok := stationState(state)
		if !ok {
			r.log.Warnf("dropping supplicant state %q: %v", state, ErrInvalidState)
			return
		}

		r.reportNet(net)
	case roleAccessPoint:
		switch state {
		case wpa.StateCompleted:
			r.reportAp(ApEnabled)
		case wpa.StateDisconnected, wpa.StateInactive, wpa.StateInterfaceDisabled:
			if ap == ApEnabling || ap == ApEnabled {
				r.reportAp(ApFailed)
			}
		}
	}
}

func (r *WpaRadio) handleScanDone(success bool) {
	if !success {
		r.log.Warnf("scan on %v failed", r.ifname)
		return
	}

	bsss, err := r.iface.BSSs()
	if err != nil {
		r.log.Errorf("unable to get BSSs: %v", err)
		return
	}

	var results []ScanResult

	for _, bss := range bsss {
		b, err := bss.GetAll()
		if err != nil {
			r.log.Debugf("skipping bss %v: %v", bss, err)
			continue
		}

		results = append(results, ScanResult{
			Ssid:      b.Ssid,
			Bssid:     b.Bssid,
			Signal:    b.Signal,
			Security:  bssSecurity(b),
			Frequency: b.Frequency,
		})
	}

	r.mu.Lock()
	h := r.handler
	r.mu.Unlock()

	if h != nil {
		h.HandleScanResults(results)
	}
}

func (r *WpaRadio) handleStationsChanged() {
	r.mu.Lock()
	h := r.handler
	r.mu.Unlock()

	if h != nil {
		h.HandleClientsChanged()
	}
}

func (r *WpaRadio) reportModule(s ModuleState) {
	r.mu.Lock()
	r.module = s
	h := r.handler
	r.mu.Unlock()

	if h != nil {
		h.HandleModuleState(s)
	}
}

func (r *WpaRadio) reportAp(s ApState) {
	r.mu.Lock()
	r.ap = s
	h := r.handler
	r.mu.Unlock()

	if h != nil {
		h.HandleApState(s)
	}
}

func (r *WpaRadio) reportNet(s NetState) {
	r.mu.Lock()
	r.net = s
	h := r.handler
	r.mu.Unlock()

	if h != nil {
		h.HandleNetState(s)
	}
}

// stationState maps a supplicant interface state onto a link state.
func stationState(state string) (NetState, bool) {
	switch state {
	case wpa.StateCompleted:
		return Connected, true
	case wpa.StateDisconnected, wpa.StateInactive:
		return Disconnected, true
	case wpa.StateScanning, wpa.StateAuthenticating, wpa.StateAssociating,
		wpa.StateAssociated, wpa.StateFourWayHandshake, wpa.StateGroupHandshake:
		return Connecting, true
	case wpa.StateInterfaceDisabled:
		return Suspended, true
	default:
		return Disconnected, false
	}
}

func bssSecurity(b *wpa.Bss) Security {
	switch {
	case b.Sae:
		return WPA3
	case b.Rsn:
		return WPA2
	case b.Wpa:
		return WPA
	case b.Privacy:
		return WEP
	default:
		return Open
	}
}

func stationConfig(d Descriptor) (wpa.NetworkConfig, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	config := wpa.NetworkConfig{
		"ssid": d.Ssid,
	}

	switch d.Security {
	case Open:
		config["key_mgmt"] = "NONE"
	case WEP:
		config["key_mgmt"] = "NONE"
		config["wep_key0"] = d.Key
		config["wep_tx_keyidx"] = uint32(0)
	case WPA, WPA2:
		config["key_mgmt"] = "WPA-PSK"
		config["psk"] = d.Key
	case WPA3:
		config["key_mgmt"] = "SAE"
		config["sae_password"] = d.Key
		config["ieee80211w"] = uint32(2)
	}

	if d.Hidden {
		config["scan_ssid"] = uint32(1)
	}

	switch d.Band {
	case Band2GHz:
		config["freq_list"] = "2412 2417 2422 2427 2432 2437 2442 2447 2452 2457 2462 2467 2472"
	case Band5GHz:
		config["freq_list"] = "5180 5200 5220 5240 5260 5280 5300 5320 5745 5765 5785 5805 5825"
	}

	return config, nil
}

func accessPointConfig(d Descriptor) (wpa.NetworkConfig, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	config := wpa.NetworkConfig{
		"ssid":      d.Ssid,
		"mode":      wpa.ModeAccessPoint,
		"frequency": uint32(2412),
	}

	if d.Band == Band5GHz {
		config["frequency"] = uint32(5180)
	}

	switch d.Security {
	case Open:
		config["key_mgmt"] = "NONE"
	case WPA2:
		config["key_mgmt"] = "WPA-PSK"
		config["proto"] = "RSN"
		config["pairwise"] = "CCMP"
		config["group"] = "CCMP"
		config["psk"] = d.Key
	case WPA3:
		config["key_mgmt"] = "SAE"
		config["proto"] = "RSN"
		config["pairwise"] = "CCMP"
		config["sae_password"] = d.Key
		config["ieee80211w"] = uint32(2)
	default:
		return nil, errors.Errorf("%v is not supported for access points: %w", d.Security, ErrInvalidDescriptor)
	}

	if d.Hidden {
		config["ignore_broadcast_ssid"] = uint32(1)
	}

	return config, nil
}
