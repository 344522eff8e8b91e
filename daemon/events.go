package daemon

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const eventBuffer = 64

// Event kinds
const (
	ModuleStateEvent  = "module_state"
	ApStateEvent      = "ap_state"
	NetStateEvent     = "net_state"
	ModeEvent         = "mode"
	ScanResultsEvent  = "scan_results"
	RosterChangeEvent = "roster_change"
	RosterEvent       = "roster"
)

type Event struct {
	Id   string      `json:"id"`
	Time time.Time   `json:"time"`
	Kind string      `json:"kind"`
	Data interface{} `json:"data"`
}

type ModeChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type EventClient struct {
	Events     chan *Event
	Id         uint32
	cancelChan chan struct{}
	cancelOnce sync.Once
	daemon     *Daemon
}

// SubscribeEvents returns a client receiving every event from now on. Events
// are dropped for clients that do not keep up.
func (d *Daemon) SubscribeEvents() *EventClient {
	client := &EventClient{
		Events:     make(chan *Event, eventBuffer),
		cancelChan: make(chan struct{}),
		daemon:     d,
	}

	d.eventClientMtx.Lock()
	client.Id = d.nextEventClientID
	d.nextEventClientID++
	d.eventClients[client.Id] = client
	d.eventClientMtx.Unlock()

	d.log.Debugf("subscribed event client %v", client.Id)

	return client
}

// Cancel unsubscribes the client and closes its event channel.
func (c *EventClient) Cancel() error {
	c.cancelOnce.Do(func() {
		c.daemon.eventClientMtx.Lock()
		delete(c.daemon.eventClients, c.Id)
		close(c.Events)
		c.daemon.eventClientMtx.Unlock()

		close(c.cancelChan)
	})

	return nil
}

// Done is closed once the client is cancelled.
func (c *EventClient) Done() <-chan struct{} {
	return c.cancelChan
}

func (d *Daemon) broadcast(kind string, data interface{}) {
	event := &Event{
		Id:   uuid.NewString(),
		Time: time.Now(),
		Kind: kind,
		Data: data,
	}

	d.eventClientMtx.Lock()
	defer d.eventClientMtx.Unlock()

	for _, client := range d.eventClients {
		select {
		case client.Events <- event:
		default:
			d.log.Warnf("dropping %v event for slow client %v", kind, client.Id)
		}
	}
}

func (d *Daemon) cancelEventClients() {
	d.eventClientMtx.Lock()
	clients := make([]*EventClient, 0, len(d.eventClients))
	for _, client := range d.eventClients {
		clients = append(clients, client)
	}
	d.eventClientMtx.Unlock()

	for _, client := range clients {
		_ = client.Cancel()
	}
}
