// Package connectivity reports whether the device reached a network.
package connectivity

import (
	"context"
	"sync"

	"github.com/the-lightning-land/wifid/radio"
)

type State int

const (
	Offline State = iota
	Online
)

func (s State) String() string {
	switch s {
	case Offline:
		return "OFFLINE"
	case Online:
		return "ONLINE"
	default:
		return "INVALID STATE"
	}
}

type Reporter interface {
	CurrentState() State
	// WaitForStateChange blocks until the state differs from state or the
	// context is done. It reports whether the state changed.
	WaitForStateChange(context.Context, State) bool
}

type Config struct {
	Logger Logger
}

// NetReporter is fed with net states and considers the device online while
// it is connected to a network.
type NetReporter struct {
	log Logger

	mu      sync.Mutex
	state   State
	changed chan struct{}
}

// check NetReporter compliance to its interface during compile time
var _ Reporter = (*NetReporter)(nil)

func NewReporter(config *Config) *NetReporter {
	r := &NetReporter{
		state:   Offline,
		changed: make(chan struct{}),
	}

	if config != nil && config.Logger != nil {
		r.log = config.Logger
	} else {
		r.log = noopLogger{}
	}

	return r
}

// Update takes the latest net state into account.
func (r *NetReporter) Update(s radio.NetState) {
	next := Offline
	if s == radio.Connected {
		next = Online
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if next == r.state {
		return
	}

	r.log.Infof("connectivity changed from %v to %v", r.state, next)

	r.state = next
	close(r.changed)
	r.changed = make(chan struct{})
}

func (r *NetReporter) CurrentState() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

func (r *NetReporter) WaitForStateChange(ctx context.Context, state State) bool {
	for {
		r.mu.Lock()
		current, changed := r.state, r.changed
		r.mu.Unlock()

		if current != state {
			return true
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return false
		}
	}
}
