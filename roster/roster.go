// Package roster tracks the clients attached to the hosted access point.
package roster

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-errors/errors"
	"github.com/the-lightning-land/wifid/dispatch"
	"github.com/the-lightning-land/wifid/radio"
)

// ListFunc returns a snapshot of the attached clients.
type ListFunc func(ctx context.Context) ([]radio.Client, error)

type Config struct {
	List       ListFunc
	Dispatcher *dispatch.Dispatcher
	// Poll refreshes the roster periodically while active. Zero disables polling.
	Poll   time.Duration
	Logger Logger
}

type Tracker struct {
	list       ListFunc
	dispatcher *dispatch.Dispatcher
	poll       time.Duration
	log        Logger

	mu         sync.Mutex
	active     bool
	generation uint64
	clients    map[string]radio.Client
	stopPoll   chan struct{}
}

func New(config *Config) *Tracker {
	t := &Tracker{
		list:       config.List,
		dispatcher: config.Dispatcher,
		poll:       config.Poll,
		clients:    make(map[string]radio.Client),
	}

	if config.Logger != nil {
		t.log = config.Logger
	} else {
		t.log = noopLogger{}
	}

	return t
}

// Activate starts tracking. It is called when the access point comes up.
func (t *Tracker) Activate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active {
		return
	}

	t.active = true
	t.generation++

	if t.poll > 0 {
		t.stopPoll = make(chan struct{})
		go t.runPoll(t.stopPoll)
	}
}

// Deactivate stops tracking and forgets all clients. No leave changes are
// emitted, the mode change already tells observers the roster is gone.
func (t *Tracker) Deactivate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return
	}

	t.active = false
	t.generation++
	t.clients = make(map[string]radio.Client)

	if t.stopPoll != nil {
		close(t.stopPoll)
		t.stopPoll = nil
	}
}

func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.active
}

// Clients returns the known clients ordered by address.
func (t *Tracker) Clients() []radio.Client {
	t.mu.Lock()
	defer t.mu.Unlock()

	return sorted(t.clients)
}

// Refresh lists the attached clients, reconciles them against the roster and
// emits one change per joined, left or updated client. It returns the new
// roster.
func (t *Tracker) Refresh(ctx context.Context) ([]radio.Client, error) {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return nil, errors.Errorf("roster is only tracked while hosting: %w", radio.ErrModeConflict)
	}
	generation := t.generation
	t.mu.Unlock()

	listed, err := t.list(ctx)
	if err != nil {
		return nil, errors.Errorf("could not list clients: %w", err)
	}

	next := make(map[string]radio.Client, len(listed))
	for _, client := range listed {
		addr, err := radio.NormalizeAddress(client.Address)
		if err != nil {
			t.log.Warnf("skipping client: %v", err)
			continue
		}

		client.Address = addr
		next[addr] = client
	}

	t.mu.Lock()
	if !t.active || t.generation != generation {
		t.mu.Unlock()
		t.log.Debugf("discarding roster listed before deactivation")
		return nil, errors.Errorf("access point went down during refresh: %w", radio.ErrModeConflict)
	}

	changes := Diff(t.clients, next)
	t.clients = next

	for _, change := range changes {
		t.dispatcher.PostRosterChange(change)
	}
	t.mu.Unlock()

	t.dispatcher.Drain()

	for _, change := range changes {
		t.log.Debugf("client %v: %v", change.Kind, change.Client.Address)
	}

	return sorted(next), nil
}

func (t *Tracker) runPoll(stop chan struct{}) {
	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()

	for {
		ctx, cancel := context.WithTimeout(context.Background(), t.poll)
		_, err := t.Refresh(ctx)
		cancel()

		if err != nil {
			t.log.Debugf("could not refresh roster: %v", err)
		}

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// Diff compares two rosters keyed by address. Clients only in next joined,
// clients only in prev left, and clients in both whose metadata differs were
// updated. Changes are ordered by address.
func Diff(prev, next map[string]radio.Client) []dispatch.RosterChange {
	var changes []dispatch.RosterChange

	for addr, client := range next {
		old, ok := prev[addr]
		switch {
		case !ok:
			changes = append(changes, dispatch.RosterChange{Kind: dispatch.Join, Client: client})
		case old != client:
			changes = append(changes, dispatch.RosterChange{Kind: dispatch.Update, Client: client})
		}
	}

	for addr, client := range prev {
		if _, ok := next[addr]; !ok {
			changes = append(changes, dispatch.RosterChange{Kind: dispatch.Leave, Client: client})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Client.Address < changes[j].Client.Address
	})

	return changes
}

func sorted(clients map[string]radio.Client) []radio.Client {
	list := make([]radio.Client, 0, len(clients))
	for _, client := range clients {
		list = append(list, client)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].Address < list[j].Address
	})

	return list
}
