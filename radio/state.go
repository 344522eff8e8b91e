package radio

import (
	"github.com/go-errors/errors"
)

// ModuleState is the state of the client mode radio as reported by the driver.
type ModuleState int

const (
	ModuleDisabled ModuleState = iota
	ModuleEnabling
	ModuleEnabled
	ModuleDisabling
	ModuleUnknown
)

func (s ModuleState) String() string {
	switch s {
	case ModuleDisabled:
		return "DISABLED"
	case ModuleEnabling:
		return "ENABLING"
	case ModuleEnabled:
		return "ENABLED"
	case ModuleDisabling:
		return "DISABLING"
	case ModuleUnknown:
		return "UNKNOWN"
	default:
		return "INVALID STATE"
	}
}

// Valid reports whether s is one of the known module states.
func (s ModuleState) Valid() bool {
	return s >= ModuleDisabled && s <= ModuleUnknown
}

// ParseModuleState converts a raw driver code into a ModuleState.
func ParseModuleState(code int) (ModuleState, error) {
	s := ModuleState(code)
	if !s.Valid() {
		return ModuleUnknown, errors.Errorf("module state %d: %w", code, ErrInvalidState)
	}

	return s, nil
}

// ApState is the state of the access point as reported by the driver.
type ApState int

const (
	ApDisabled ApState = iota
	ApEnabling
	ApEnabled
	ApDisabling
	ApFailed
)

func (s ApState) String() string {
	switch s {
	case ApDisabled:
		return "DISABLED"
	case ApEnabling:
		return "ENABLING"
	case ApEnabled:
		return "ENABLED"
	case ApDisabling:
		return "DISABLING"
	case ApFailed:
		return "FAILED"
	default:
		return "INVALID STATE"
	}
}

// Valid reports whether s is one of the known access point states.
func (s ApState) Valid() bool {
	return s >= ApDisabled && s <= ApFailed
}

// ParseApState converts a raw driver code into an ApState.
func ParseApState(code int) (ApState, error) {
	s := ApState(code)
	if !s.Valid() {
		return ApFailed, errors.Errorf("access point state %d: %w", code, ErrInvalidState)
	}

	return s, nil
}

// NetState is the link status while in client mode.
type NetState int

const (
	Disconnected NetState = iota
	Connecting
	Connected
	Disconnecting
	Suspended
)

func (s NetState) String() string {
	switch s {
	case Disconnected:
		return "DISCONNECTED"
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	case Disconnecting:
		return "DISCONNECTING"
	case Suspended:
		return "SUSPENDED"
	default:
		return "INVALID STATE"
	}
}

// Valid reports whether s is one of the known link states.
func (s NetState) Valid() bool {
	return s >= Disconnected && s <= Suspended
}

// ParseNetState converts a raw driver code into a NetState.
func ParseNetState(code int) (NetState, error) {
	s := NetState(code)
	if !s.Valid() {
		return Disconnected, errors.Errorf("net state %d: %w", code, ErrInvalidState)
	}

	return s, nil
}
