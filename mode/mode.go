// Package mode derives the operating mode of the wireless interface.
package mode

import (
	"github.com/the-lightning-land/wifid/radio"
)

// Mode is the operating mode derived from the module and access point states.
type Mode int

const (
	// Off covers every transitional combination.
	Off Mode = iota
	// Net means the device is a client of another network.
	Net
	// Ap means the device hosts its own network.
	Ap
	// Conflicting means both radios report being enabled at once.
	Conflicting
)

func (m Mode) String() string {
	switch m {
	case Off:
		return "OFF_MODE"
	case Net:
		return "NET_MODE"
	case Ap:
		return "APN_MODE"
	case Conflicting:
		return "CONFLICTING"
	default:
		return "INVALID MODE"
	}
}

// Derive is a pure function of the two reported states.
func Derive(module radio.ModuleState, ap radio.ApState) Mode {
	switch {
	case module == radio.ModuleEnabled && ap == radio.ApDisabled:
		return Net
	case module == radio.ModuleDisabled && ap == radio.ApEnabled:
		return Ap
	case module == radio.ModuleEnabled && ap == radio.ApEnabled:
		return Conflicting
	default:
		return Off
	}
}
