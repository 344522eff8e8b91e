// Package coordinator arbitrates between station mode and access point mode.
//
// The coordinator is the only component that talks to the radio. It keeps
// the last reported module, access point and net state, derives the operating
// mode from them and refuses requests that would run both radios at once.
// Every radio event and every accepted request is serialized on a single
// lock; observers are notified after the lock is released.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/go-errors/errors"
	"github.com/the-lightning-land/wifid/dispatch"
	"github.com/the-lightning-land/wifid/mode"
	"github.com/the-lightning-land/wifid/radio"
	"github.com/the-lightning-land/wifid/roster"
	"github.com/the-lightning-land/wifid/scan"
)

// ConfigurationKind tells which radio a configuration was applied to.
type ConfigurationKind string

const (
	Station     ConfigurationKind = "station"
	AccessPoint ConfigurationKind = "access-point"
)

// Configuration is a descriptor the radio confirmed, together with the role
// it was applied in.
type Configuration struct {
	Kind       ConfigurationKind `json:"kind"`
	Descriptor radio.Descriptor  `json:"descriptor"`
}

// Status is a consistent snapshot of the coordinator.
type Status struct {
	Mode   mode.Mode
	Module radio.ModuleState
	Ap     radio.ApState
	Net    radio.NetState
	// Ssid of the joined or hosted network, empty when there is none.
	Ssid             string
	AutoScan         bool
	AutoScanInterval time.Duration
	Clients          int
}

type Config struct {
	Radio radio.Radio
	// RosterPoll refreshes the client roster periodically while hosting.
	RosterPoll time.Duration
	Logger     Logger
}

// pending is a connect or host request that was handed to the radio and has
// not been confirmed yet.
type pending struct {
	descriptor radio.Descriptor
	// progressed is set once the radio reported the transitional state
	// of the request.
	progressed bool
}

type Coordinator struct {
	radio      radio.Radio
	dispatcher *dispatch.Dispatcher
	scanner    *scan.Scheduler
	roster     *roster.Tracker
	log        Logger

	mu              sync.Mutex
	started         bool
	module          radio.ModuleState
	ap              radio.ApState
	net             radio.NetState
	mode            mode.Mode
	enableRequested bool
	pendingConnect  *pending
	pendingHost     *pending
	current         *Configuration
	last            *Configuration
	scanResults     []radio.ScanResult
}

var _ radio.Handler = (*Coordinator)(nil)

func New(config *Config) *Coordinator {
	c := &Coordinator{
		radio:  config.Radio,
		module: radio.ModuleUnknown,
		ap:     radio.ApDisabled,
		net:    radio.Disconnected,
		mode:   mode.Off,
	}

	if config.Logger != nil {
		c.log = config.Logger
	} else {
		c.log = noopLogger{}
	}

	c.dispatcher = dispatch.New(&dispatch.Config{
		Logger: c.log,
	})

	c.scanner = scan.New(&scan.Config{
		Scan:   c.ScanOnce,
		Logger: c.log,
	})

	c.roster = roster.New(&roster.Config{
		List: func(ctx context.Context) ([]radio.Client, error) {
			clients, err := c.radio.ConnectedClients(ctx)
			return clients, radio.Normalize(err)
		},
		Dispatcher: c.dispatcher,
		Poll:       config.RosterPoll,
		Logger:     c.log,
	})

	return c
}

// Start registers the coordinator with the radio, which reports its current
// states right away.
func (c *Coordinator) Start() error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("coordinator already started")
	}
	c.started = true
	c.mu.Unlock()

	if err := c.radio.Start(c); err != nil {
		c.mu.Lock()
		c.started = false
		c.mu.Unlock()

		return errors.Errorf("could not start radio: %w", radio.Normalize(err))
	}

	c.log.Infof("coordinator started")

	return nil
}

// Stop cancels the auto scan, stops tracking clients and releases the radio.
// The radio is left in whatever state it is in.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = false
	c.mu.Unlock()

	c.scanner.Close()
	c.roster.Deactivate()

	if err := c.radio.Stop(); err != nil {
		return errors.Errorf("could not stop radio: %v", err)
	}

	c.log.Infof("coordinator stopped")

	return nil
}

// SetRadioEnabled switches the station radio. Enabling is refused while an
// access point is up or coming up.
func (c *Coordinator) SetRadioEnabled(ctx context.Context, enabled bool) error {
	c.mu.Lock()
	if (enabled && c.module == radio.ModuleEnabled) || (!enabled && c.module == radio.ModuleDisabled) {
		c.mu.Unlock()
		return nil
	}
	if enabled && c.hostingLocked() {
		ap := c.ap
		c.mu.Unlock()
		return errors.Errorf("cannot enable radio while access point is %v: %w", ap, radio.ErrModeConflict)
	}
	if enabled {
		c.enableRequested = true
	}
	c.mu.Unlock()

	err := c.radio.SetModuleEnabled(ctx, enabled)
	if err != nil {
		if enabled {
			c.mu.Lock()
			c.enableRequested = false
			c.mu.Unlock()
		}

		return errors.Errorf("could not set radio enabled to %v: %w", enabled, radio.Normalize(err))
	}

	return nil
}

// Connect asks the radio to join the described network. The descriptor is
// remembered as the last configuration only once the radio reports being
// connected.
func (c *Coordinator) Connect(ctx context.Context, d radio.Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.hostingLocked() {
		ap := c.ap
		c.mu.Unlock()
		return errors.Errorf("cannot connect while access point is %v: %w", ap, radio.ErrModeConflict)
	}

	p := &pending{descriptor: d}
	c.pendingConnect = p
	c.mu.Unlock()

	c.log.Infof("connecting to %v", d)

	err := c.radio.Connect(ctx, d)
	if err != nil {
		c.mu.Lock()
		if c.pendingConnect == p {
			c.pendingConnect = nil
		}
		c.mu.Unlock()

		return errors.Errorf("could not connect to %v: %w", d.Ssid, radio.Normalize(err))
	}

	return nil
}

// Disconnect abandons any pending connect and leaves the current network.
func (c *Coordinator) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	pending := c.pendingConnect != nil
	c.pendingConnect = nil
	net := c.net
	c.mu.Unlock()

	// a radio may take a connect request without reporting progress yet
	if net == radio.Disconnected && !pending {
		return nil
	}

	err := c.radio.Disconnect(ctx)
	if err != nil {
		return errors.Errorf("could not disconnect: %w", radio.Normalize(err))
	}

	return nil
}

// Host asks the radio to bring up an access point. It is refused unless the
// station radio is off or on its way off.
func (c *Coordinator) Host(ctx context.Context, d radio.Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.module == radio.ModuleEnabled || c.module == radio.ModuleEnabling || c.enableRequested {
		module := c.module
		c.mu.Unlock()
		return errors.Errorf("cannot host while radio is %v: %w", module, radio.ErrModeConflict)
	}

	p := &pending{descriptor: d}
	c.pendingHost = p
	c.mu.Unlock()

	c.log.Infof("hosting %v", d)

	err := c.radio.StartAccessPoint(ctx, d)
	if err != nil {
		c.mu.Lock()
		if c.pendingHost == p {
			c.pendingHost = nil
		}
		c.mu.Unlock()

		return errors.Errorf("could not host %v: %w", d.Ssid, radio.Normalize(err))
	}

	return nil
}

// StopHost abandons any pending host request and takes the access point down.
func (c *Coordinator) StopHost(ctx context.Context) error {
	c.mu.Lock()
	pending := c.pendingHost != nil
	c.pendingHost = nil
	ap := c.ap
	c.mu.Unlock()

	if (ap == radio.ApDisabled || ap == radio.ApDisabling) && !pending {
		return nil
	}

	err := c.radio.StopAccessPoint(ctx)
	if err != nil {
		return errors.Errorf("could not stop access point: %w", radio.Normalize(err))
	}

	return nil
}

// ScanOnce triggers a single scan. Results arrive through OnScanResults.
func (c *Coordinator) ScanOnce(ctx context.Context) error {
	err := c.radio.Scan(ctx)
	if err != nil {
		return errors.Errorf("could not scan: %w", radio.Normalize(err))
	}

	return nil
}

// StartAutoScan scans now and then every interval, replacing any running
// auto scan.
func (c *Coordinator) StartAutoScan(interval time.Duration) error {
	return c.scanner.Start(interval)
}

func (c *Coordinator) StopAutoScan() {
	c.scanner.Stop()
}

func (c *Coordinator) AutoScanActive() bool {
	return c.scanner.Active()
}

// RefreshRoster lists the attached clients, emits the roster changes and then
// the full roster. It fails with a mode conflict unless hosting.
func (c *Coordinator) RefreshRoster(ctx context.Context) ([]radio.Client, error) {
	clients, err := c.roster.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	c.dispatcher.PostRoster(clients)
	c.dispatcher.Drain()

	return clients, nil
}

// Clients returns the roster as of the last refresh.
func (c *Coordinator) Clients() []radio.Client {
	return c.roster.Clients()
}

func (c *Coordinator) Mode() mode.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.mode
}

func (c *Coordinator) ModuleState() radio.ModuleState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.module
}

func (c *Coordinator) ApState() radio.ApState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ap
}

func (c *Coordinator) NetState() radio.NetState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.net
}

// RadioEnabled reports whether the station radio is on or turning on.
func (c *Coordinator) RadioEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.module == radio.ModuleEnabled || c.module == radio.ModuleEnabling
}

// LastConfiguration returns the descriptor most recently confirmed by the
// radio, in either role.
func (c *Coordinator) LastConfiguration() (Configuration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.last == nil {
		return Configuration{}, false
	}

	return *c.last, true
}

// ScanResults returns the results of the last completed scan.
func (c *Coordinator) ScanResults() []radio.ScanResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]radio.ScanResult(nil), c.scanResults...)
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	status := Status{
		Mode:   c.mode,
		Module: c.module,
		Ap:     c.ap,
		Net:    c.net,
	}
	if c.current != nil {
		status.Ssid = c.current.Descriptor.Ssid
	}
	c.mu.Unlock()

	status.AutoScan = c.scanner.Active()
	status.AutoScanInterval = c.scanner.Interval()
	status.Clients = len(c.roster.Clients())

	return status
}

func (c *Coordinator) OnModuleState(fn func(radio.ModuleState)) {
	c.dispatcher.OnModuleState(fn)
}

func (c *Coordinator) OnApState(fn func(radio.ApState)) {
	c.dispatcher.OnApState(fn)
}

func (c *Coordinator) OnNetState(fn func(radio.NetState)) {
	c.dispatcher.OnNetState(fn)
}

func (c *Coordinator) OnScanResults(fn func([]radio.ScanResult)) {
	c.dispatcher.OnScanResults(fn)
}

func (c *Coordinator) OnRosterChange(fn func(dispatch.RosterChange)) {
	c.dispatcher.OnRosterChange(fn)
}

func (c *Coordinator) OnRoster(fn func([]radio.Client)) {
	c.dispatcher.OnRoster(fn)
}

func (c *Coordinator) OnModeChange(fn func(from, to mode.Mode)) {
	c.dispatcher.OnModeChange(fn)
}

// HandleModuleState implements radio.Handler.
func (c *Coordinator) HandleModuleState(s radio.ModuleState) {
	if !s.Valid() {
		c.log.Warnf("ignoring module state %d: %v", s, radio.ErrInvalidState)
		return
	}

	c.mu.Lock()
	c.log.Debugf("module state %v -> %v", c.module, s)

	c.module = s
	c.enableRequested = false
	if s == radio.ModuleDisabling || s == radio.ModuleDisabled {
		c.pendingConnect = nil
	}

	c.dispatcher.PostModuleState(s)
	c.updateModeLocked()
	c.mu.Unlock()

	c.dispatcher.Drain()
}

// HandleApState implements radio.Handler.
func (c *Coordinator) HandleApState(s radio.ApState) {
	if !s.Valid() {
		c.log.Warnf("ignoring access point state %d: %v", s, radio.ErrInvalidState)
		return
	}

	c.mu.Lock()
	c.log.Debugf("access point state %v -> %v", c.ap, s)

	switch s {
	case radio.ApEnabling:
		if c.pendingHost != nil {
			c.pendingHost.progressed = true
		}

	case radio.ApEnabled:
		if c.pendingHost != nil {
			c.confirmLocked(AccessPoint, c.pendingHost.descriptor)
			c.pendingHost = nil
		}

	case radio.ApFailed:
		if c.pendingHost != nil {
			c.log.Warnf("could not host %v", c.pendingHost.descriptor.Ssid)
			c.pendingHost = nil
		}
		c.clearCurrentLocked(AccessPoint)

	case radio.ApDisabled:
		if c.pendingHost != nil && c.pendingHost.progressed {
			c.pendingHost = nil
		}
		c.clearCurrentLocked(AccessPoint)

	case radio.ApDisabling:
		c.clearCurrentLocked(AccessPoint)
	}

	c.ap = s

	c.dispatcher.PostApState(s)
	c.updateModeLocked()
	c.mu.Unlock()

	c.dispatcher.Drain()
}

// HandleNetState implements radio.Handler.
func (c *Coordinator) HandleNetState(s radio.NetState) {
	if !s.Valid() {
		c.log.Warnf("ignoring net state %d: %v", s, radio.ErrInvalidState)
		return
	}

	c.mu.Lock()
	c.log.Debugf("net state %v -> %v", c.net, s)

	switch s {
	case radio.Connecting:
		if c.pendingConnect != nil {
			c.pendingConnect.progressed = true
		}

	case radio.Connected:
		// A repeated CONNECTED for the previous network must not confirm
		// a request the radio has not started on yet.
		if c.pendingConnect != nil && (c.pendingConnect.progressed || c.net != radio.Connected) {
			c.confirmLocked(Station, c.pendingConnect.descriptor)
			c.pendingConnect = nil
		}

	case radio.Disconnected, radio.Suspended:
		if c.pendingConnect != nil && c.pendingConnect.progressed {
			c.log.Warnf("could not connect to %v", c.pendingConnect.descriptor.Ssid)
			c.pendingConnect = nil
		}
		c.clearCurrentLocked(Station)

	case radio.Disconnecting:
		c.clearCurrentLocked(Station)
	}

	c.net = s

	c.dispatcher.PostNetState(s)
	c.mu.Unlock()

	c.dispatcher.Drain()
}

// HandleScanResults implements radio.Handler.
func (c *Coordinator) HandleScanResults(results []radio.ScanResult) {
	c.mu.Lock()
	c.scanResults = append([]radio.ScanResult(nil), results...)
	c.dispatcher.PostScanResults(results)
	c.mu.Unlock()

	c.log.Debugf("scan found %v networks", len(results))

	c.dispatcher.Drain()
}

// HandleClientsChanged implements radio.Handler.
func (c *Coordinator) HandleClientsChanged() {
	if !c.roster.Active() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := c.roster.Refresh(ctx); err != nil {
		c.log.Debugf("could not refresh roster: %v", err)
	}
}

func (c *Coordinator) hostingLocked() bool {
	return c.ap == radio.ApEnabled || c.ap == radio.ApEnabling || c.pendingHost != nil
}

func (c *Coordinator) confirmLocked(kind ConfigurationKind, d radio.Descriptor) {
	config := &Configuration{
		Kind:       kind,
		Descriptor: d,
	}

	c.current = config
	c.last = config

	c.log.Infof("%v configuration %v confirmed", kind, d)
}

func (c *Coordinator) clearCurrentLocked(kind ConfigurationKind) {
	if c.current != nil && c.current.Kind == kind {
		c.current = nil
	}
}

// updateModeLocked derives the mode from the current states and posts a
// change only if the derived mode differs. The roster is tracked exactly
// while hosting.
func (c *Coordinator) updateModeLocked() {
	next := mode.Derive(c.module, c.ap)
	if next == c.mode {
		return
	}

	prev := c.mode
	c.mode = next

	if next == mode.Conflicting {
		c.log.Errorf("radio and access point are both enabled")
	} else {
		c.log.Infof("mode changed from %v to %v", prev, next)
	}

	switch {
	case next == mode.Ap:
		c.roster.Activate()
	case prev == mode.Ap:
		c.roster.Deactivate()
	}

	c.dispatcher.PostModeChange(prev, next)
}
