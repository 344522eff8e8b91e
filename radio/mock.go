package radio

import (
	"context"
	"sync"
	"time"

	"github.com/go-errors/errors"
)

// check MockRadio compliance to its interface during compile time
var _ Radio = (*MockRadio)(nil)

type MockRadioConfig struct {
	// Delay between a request and its completion report. With a zero delay
	// every report is delivered synchronously on the calling goroutine.
	Delay    time.Duration
	Networks []ScanResult
	Clients  []Client
	Logger   Logger
}

// MockRadio simulates a radio driver. It is used in tests and by the daemon
// on machines without wireless hardware.
type MockRadio struct {
	mu         sync.Mutex
	log        Logger
	handler    Handler
	delay      time.Duration
	module     ModuleState
	ap         ApState
	net        NetState
	networks   []ScanResult
	clients    []Client
	scanning   bool
	manual     bool
	failNext   bool
	absent     bool
	calls      map[string]int
	lastTarget *Descriptor
}

type report func(h Handler)

func NewMockRadio(config *MockRadioConfig) *MockRadio {
	m := &MockRadio{
		module:   ModuleDisabled,
		ap:       ApDisabled,
		net:      Disconnected,
		networks: append([]ScanResult(nil), config.Networks...),
		clients:  append([]Client(nil), config.Clients...),
		delay:    config.Delay,
		calls:    make(map[string]int),
	}

	if config.Logger != nil {
		m.log = config.Logger
	} else {
		m.log = noopLogger{}
	}

	return m
}

func (m *MockRadio) Start(h Handler) error {
	m.mu.Lock()
	m.handler = h
	module, ap, net := m.module, m.ap, m.net
	m.mu.Unlock()

	h.HandleModuleState(module)
	h.HandleApState(ap)
	h.HandleNetState(net)

	return nil
}

func (m *MockRadio) Stop() error {
	m.mu.Lock()
	m.handler = nil
	m.mu.Unlock()

	return nil
}

func (m *MockRadio) SetModuleEnabled(ctx context.Context, enabled bool) error {
	m.mu.Lock()
	m.calls["SetModuleEnabled"]++
	if m.absent {
		m.mu.Unlock()
		return errors.Errorf("no wireless hardware: %w", ErrRadioUnavailable)
	}
	m.mu.Unlock()

	if enabled {
		m.run(m.setModule(ModuleEnabling), m.setModule(ModuleEnabled))
	} else {
		m.run(m.setModule(ModuleDisabling), m.setModule(ModuleDisabled), m.dropLink())
	}

	return nil
}

func (m *MockRadio) Scan(ctx context.Context) error {
	m.mu.Lock()
	m.calls["Scan"]++
	if m.module != ModuleEnabled {
		m.mu.Unlock()
		return errors.Errorf("cannot scan with module %v: %w", m.module, ErrRadioUnavailable)
	}
	if m.scanning {
		m.mu.Unlock()
		m.log.Debugf("scan already in progress")
		return nil
	}
	m.scanning = !m.manual
	m.mu.Unlock()

	m.run(func() report { return nil }, func() report {
		m.scanning = false
		results := append([]ScanResult(nil), m.networks...)
		return func(h Handler) { h.HandleScanResults(results) }
	})

	return nil
}

func (m *MockRadio) Connect(ctx context.Context, d Descriptor) error {
	m.mu.Lock()
	m.calls["Connect"]++
	if m.module != ModuleEnabled {
		m.mu.Unlock()
		return errors.Errorf("cannot connect with module %v: %w", m.module, ErrRadioUnavailable)
	}
	m.lastTarget = &d
	fail := m.failNext
	m.failNext = false
	m.mu.Unlock()

	if fail {
		m.run(m.setNet(Connecting), m.setNet(Disconnected))
	} else {
		m.run(m.setNet(Connecting), m.setNet(Connected))
	}

	return nil
}

func (m *MockRadio) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	m.calls["Disconnect"]++
	m.mu.Unlock()

	m.run(m.setNet(Disconnecting), m.setNet(Disconnected))

	return nil
}

func (m *MockRadio) StartAccessPoint(ctx context.Context, d Descriptor) error {
	m.mu.Lock()
	m.calls["StartAccessPoint"]++
	if m.absent {
		m.mu.Unlock()
		return errors.Errorf("no wireless hardware: %w", ErrRadioUnavailable)
	}
	if m.module != ModuleDisabled {
		m.mu.Unlock()
		return errors.Errorf("cannot host with module %v: %w", m.module, ErrModeConflict)
	}
	m.lastTarget = &d
	fail := m.failNext
	m.failNext = false
	m.mu.Unlock()

	if fail {
		m.run(m.setAp(ApEnabling), m.setAp(ApFailed))
	} else {
		m.run(m.setAp(ApEnabling), m.setAp(ApEnabled))
	}

	return nil
}

func (m *MockRadio) StopAccessPoint(ctx context.Context) error {
	m.mu.Lock()
	m.calls["StopAccessPoint"]++
	m.mu.Unlock()

	m.run(m.setAp(ApDisabling), m.setAp(ApDisabled))

	return nil
}

func (m *MockRadio) ConnectedClients(ctx context.Context) ([]Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls["ConnectedClients"]++

	if m.ap != ApEnabled {
		return nil, errors.Errorf("access point is %v: %w", m.ap, ErrRadioUnavailable)
	}

	return append([]Client(nil), m.clients...), nil
}

// SetManual stops the mock from completing transitions on its own. Only the
// first report of every request is delivered, tests emit the rest.
func (m *MockRadio) SetManual(manual bool) {
	m.mu.Lock()
	m.manual = manual
	m.mu.Unlock()
}

// FailNext makes the next connect or host request fail after it started.
func (m *MockRadio) FailNext() {
	m.mu.Lock()
	m.failNext = true
	m.mu.Unlock()
}

// SetAbsent simulates missing hardware.
func (m *MockRadio) SetAbsent(absent bool) {
	m.mu.Lock()
	m.absent = absent
	m.mu.Unlock()
}

// SetClients replaces the attached clients and hints the handler.
func (m *MockRadio) SetClients(clients []Client) {
	m.mu.Lock()
	m.clients = append([]Client(nil), clients...)
	h := m.handler
	m.mu.Unlock()

	if h != nil {
		h.HandleClientsChanged()
	}
}

// Calls returns how often the named operation was requested.
func (m *MockRadio) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls[op]
}

// LastTarget returns the descriptor of the most recent connect or host request.
func (m *MockRadio) LastTarget() (Descriptor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastTarget == nil {
		return Descriptor{}, false
	}

	return *m.lastTarget, true
}

func (m *MockRadio) EmitModuleState(s ModuleState) { m.emit(m.setModule(s)) }
func (m *MockRadio) EmitApState(s ApState)         { m.emit(m.setAp(s)) }
func (m *MockRadio) EmitNetState(s NetState)       { m.emit(m.setNet(s)) }

func (m *MockRadio) EmitScanResults(results []ScanResult) {
	m.emit(func() report {
		return func(h Handler) { h.HandleScanResults(results) }
	})
}

func (m *MockRadio) emit(step func() report) {
	m.mu.Lock()
	r := step()
	h := m.handler
	m.mu.Unlock()

	if h != nil && r != nil {
		r(h)
	}
}

// run reports the first step right away and the remaining steps either
// synchronously or after the configured delay.
func (m *MockRadio) run(first func() report, rest ...func() report) {
	m.emit(first)

	m.mu.Lock()
	manual, delay := m.manual, m.delay
	m.mu.Unlock()

	if manual {
		return
	}

	complete := func() {
		for _, step := range rest {
			m.emit(step)
		}
	}

	if delay > 0 {
		time.AfterFunc(delay, complete)
		return
	}

	complete()
}

func (m *MockRadio) setModule(s ModuleState) func() report {
	return func() report {
		if s.Valid() {
			m.module = s
		}
		return func(h Handler) { h.HandleModuleState(s) }
	}
}

func (m *MockRadio) setAp(s ApState) func() report {
	return func() report {
		if s.Valid() {
			m.ap = s
		}
		if s == ApDisabled || s == ApFailed {
			m.clients = nil
		}
		return func(h Handler) { h.HandleApState(s) }
	}
}

func (m *MockRadio) setNet(s NetState) func() report {
	return func() report {
		if s.Valid() {
			m.net = s
		}
		return func(h Handler) { h.HandleNetState(s) }
	}
}

func (m *MockRadio) dropLink() func() report {
	return func() report {
		if m.net == Disconnected {
			return nil
		}
		m.net = Disconnected
		return func(h Handler) { h.HandleNetState(Disconnected) }
	}
}
