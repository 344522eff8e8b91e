package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/the-lightning-land/wifid/mode"
	"github.com/the-lightning-land/wifid/radio"
)

func TestLastRegistrationWins(t *testing.T) {
	d := New(nil)

	var first, second []radio.NetState
	d.OnNetState(func(s radio.NetState) { first = append(first, s) })
	d.OnNetState(func(s radio.NetState) { second = append(second, s) })

	d.PostNetState(radio.Connecting)
	d.Drain()

	assert.Empty(t, first)
	assert.Equal(t, []radio.NetState{radio.Connecting}, second)

	d.OnNetState(nil)
	d.PostNetState(radio.Connected)
	d.Drain()

	assert.Len(t, second, 1)
}

func TestPostOnlyQueues(t *testing.T) {
	d := New(nil)

	calls := 0
	d.OnModuleState(func(radio.ModuleState) { calls++ })

	d.PostModuleState(radio.ModuleEnabling)
	d.PostModuleState(radio.ModuleEnabled)
	assert.Equal(t, 0, calls)

	d.Drain()
	assert.Equal(t, 2, calls)
}

func TestDeliveryIsNotReentrant(t *testing.T) {
	d := New(nil)

	var order []string

	d.OnApState(func(s radio.ApState) {
		order = append(order, "ap "+s.String())

		if s == radio.ApDisabling {
			d.PostModeChange(mode.Ap, mode.Off)
			d.Drain()
			order = append(order, "ap observer returns")
		}
	})

	d.OnModeChange(func(from, to mode.Mode) {
		order = append(order, "mode "+to.String())
	})

	d.PostApState(radio.ApDisabling)
	d.PostApState(radio.ApDisabled)
	d.Drain()

	assert.Equal(t, []string{
		"ap DISABLING",
		"ap observer returns",
		"ap DISABLED",
		"mode OFF_MODE",
	}, order)
}

func TestObserverPanicIsRecovered(t *testing.T) {
	d := New(nil)

	var results [][]radio.ScanResult
	d.OnScanResults(func(r []radio.ScanResult) {
		if len(r) == 0 {
			panic("no results")
		}
		results = append(results, r)
	})

	d.PostScanResults(nil)
	d.PostScanResults([]radio.ScanResult{{Ssid: "home"}})

	assert.NotPanics(t, d.Drain)
	assert.Len(t, results, 1)
}

func TestInvalidStatesAreDropped(t *testing.T) {
	d := New(nil)

	calls := 0
	d.OnModuleState(func(radio.ModuleState) { calls++ })
	d.OnApState(func(radio.ApState) { calls++ })
	d.OnNetState(func(radio.NetState) { calls++ })

	d.PostModuleState(radio.ModuleState(17))
	d.PostApState(radio.ApState(-3))
	d.PostNetState(radio.NetState(5))
	d.Drain()

	assert.Equal(t, 0, calls)
}

func TestPostedSlicesAreCopied(t *testing.T) {
	d := New(nil)

	var got []radio.Client
	d.OnRoster(func(clients []radio.Client) { got = clients })

	clients := []radio.Client{{Address: "aa:bb:cc:00:00:01"}}
	d.PostRoster(clients)
	clients[0].Address = "changed"
	d.Drain()

	assert.Equal(t, "aa:bb:cc:00:00:01", got[0].Address)
}

func TestRosterChange(t *testing.T) {
	d := New(nil)

	var got []RosterChange
	d.OnRosterChange(func(change RosterChange) { got = append(got, change) })

	d.PostRosterChange(RosterChange{Kind: Join, Client: radio.Client{Address: "aa:bb:cc:00:00:01"}})
	d.Drain()

	assert.Equal(t, []RosterChange{{Kind: Join, Client: radio.Client{Address: "aa:bb:cc:00:00:01"}}}, got)
	assert.Equal(t, "leave", Leave.String())
}
