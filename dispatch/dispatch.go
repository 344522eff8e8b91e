// Package dispatch delivers state notifications to observers.
//
// Every category has a single observer slot; registering a new observer
// replaces the previous one and registering nil clears the slot. Delivery is
// synchronous but never reentrant: notifications posted while an observer is
// running are queued and delivered, in order, once it returns.
package dispatch

import (
	"sync"

	"github.com/the-lightning-land/wifid/mode"
	"github.com/the-lightning-land/wifid/radio"
)

// ChangeKind tells how a client's presence in the roster changed.
type ChangeKind int

const (
	Join ChangeKind = iota
	Leave
	Update
)

func (k ChangeKind) String() string {
	switch k {
	case Join:
		return "join"
	case Leave:
		return "leave"
	case Update:
		return "update"
	default:
		return "unknown"
	}
}

// RosterChange is a single difference between two roster snapshots.
type RosterChange struct {
	Kind   ChangeKind
	Client radio.Client
}

type Config struct {
	Logger Logger
}

type Dispatcher struct {
	log Logger

	observersMtx sync.RWMutex
	onModule     func(radio.ModuleState)
	onAp         func(radio.ApState)
	onNet        func(radio.NetState)
	onScan       func([]radio.ScanResult)
	onChange     func(RosterChange)
	onRoster     func([]radio.Client)
	onMode       func(from, to mode.Mode)

	queueMtx sync.Mutex
	queue    []func()
	draining bool
}

func New(config *Config) *Dispatcher {
	d := &Dispatcher{}

	if config != nil && config.Logger != nil {
		d.log = config.Logger
	} else {
		d.log = noopLogger{}
	}

	return d
}

func (d *Dispatcher) OnModuleState(fn func(radio.ModuleState)) {
	d.observersMtx.Lock()
	d.onModule = fn
	d.observersMtx.Unlock()
}

func (d *Dispatcher) OnApState(fn func(radio.ApState)) {
	d.observersMtx.Lock()
	d.onAp = fn
	d.observersMtx.Unlock()
}

func (d *Dispatcher) OnNetState(fn func(radio.NetState)) {
	d.observersMtx.Lock()
	d.onNet = fn
	d.observersMtx.Unlock()
}

func (d *Dispatcher) OnScanResults(fn func([]radio.ScanResult)) {
	d.observersMtx.Lock()
	d.onScan = fn
	d.observersMtx.Unlock()
}

func (d *Dispatcher) OnRosterChange(fn func(RosterChange)) {
	d.observersMtx.Lock()
	d.onChange = fn
	d.observersMtx.Unlock()
}

// OnRoster observes the complete client list after an explicit refresh.
func (d *Dispatcher) OnRoster(fn func([]radio.Client)) {
	d.observersMtx.Lock()
	d.onRoster = fn
	d.observersMtx.Unlock()
}

// OnModeChange observes changes of the derived operating mode.
func (d *Dispatcher) OnModeChange(fn func(from, to mode.Mode)) {
	d.observersMtx.Lock()
	d.onMode = fn
	d.observersMtx.Unlock()
}

// PostModuleState queues a module state notification. Out of range states
// are logged and dropped.
func (d *Dispatcher) PostModuleState(s radio.ModuleState) {
	if !s.Valid() {
		d.log.Warnf("dropping module state %d: %v", s, radio.ErrInvalidState)
		return
	}

	d.post(func() {
		d.observersMtx.RLock()
		fn := d.onModule
		d.observersMtx.RUnlock()

		if fn != nil {
			fn(s)
		}
	})
}

func (d *Dispatcher) PostApState(s radio.ApState) {
	if !s.Valid() {
		d.log.Warnf("dropping access point state %d: %v", s, radio.ErrInvalidState)
		return
	}

	d.post(func() {
		d.observersMtx.RLock()
		fn := d.onAp
		d.observersMtx.RUnlock()

		if fn != nil {
			fn(s)
		}
	})
}

func (d *Dispatcher) PostNetState(s radio.NetState) {
	if !s.Valid() {
		d.log.Warnf("dropping net state %d: %v", s, radio.ErrInvalidState)
		return
	}

	d.post(func() {
		d.observersMtx.RLock()
		fn := d.onNet
		d.observersMtx.RUnlock()

		if fn != nil {
			fn(s)
		}
	})
}

func (d *Dispatcher) PostScanResults(results []radio.ScanResult) {
	results = append([]radio.ScanResult(nil), results...)

	d.post(func() {
		d.observersMtx.RLock()
		fn := d.onScan
		d.observersMtx.RUnlock()

		if fn != nil {
			fn(results)
		}
	})
}

func (d *Dispatcher) PostRosterChange(change RosterChange) {
	d.post(func() {
		d.observersMtx.RLock()
		fn := d.onChange
		d.observersMtx.RUnlock()

		if fn != nil {
			fn(change)
		}
	})
}

func (d *Dispatcher) PostRoster(clients []radio.Client) {
	clients = append([]radio.Client(nil), clients...)

	d.post(func() {
		d.observersMtx.RLock()
		fn := d.onRoster
		d.observersMtx.RUnlock()

		if fn != nil {
			fn(clients)
		}
	})
}

func (d *Dispatcher) PostModeChange(from, to mode.Mode) {
	d.post(func() {
		d.observersMtx.RLock()
		fn := d.onMode
		d.observersMtx.RUnlock()

		if fn != nil {
			fn(from, to)
		}
	})
}

// post only queues. Callers that hold their own locks post while holding
// them, which fixes the order, and call Drain after releasing them.
func (d *Dispatcher) post(fn func()) {
	d.queueMtx.Lock()
	d.queue = append(d.queue, fn)
	d.queueMtx.Unlock()
}

// Drain delivers queued notifications on the calling goroutine. If another
// goroutine, or an observer further up this goroutine's stack, is already
// draining, Drain returns immediately and the notifications are delivered
// by that drainer.
func (d *Dispatcher) Drain() {
	d.queueMtx.Lock()
	if d.draining {
		d.queueMtx.Unlock()
		return
	}
	d.draining = true

	for len(d.queue) > 0 {
		next := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.queueMtx.Unlock()

		d.deliver(next)

		d.queueMtx.Lock()
	}

	d.draining = false
	d.queueMtx.Unlock()
}

func (d *Dispatcher) deliver(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorf("recovered from panic in observer: %v", r)
		}
	}()

	fn()
}
