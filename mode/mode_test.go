package mode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/the-lightning-land/wifid/radio"
)

func TestDerive(t *testing.T) {
	modules := []radio.ModuleState{
		radio.ModuleDisabled,
		radio.ModuleEnabling,
		radio.ModuleEnabled,
		radio.ModuleDisabling,
		radio.ModuleUnknown,
	}

	aps := []radio.ApState{
		radio.ApDisabled,
		radio.ApEnabling,
		radio.ApEnabled,
		radio.ApDisabling,
		radio.ApFailed,
	}

	for _, module := range modules {
		for _, ap := range aps {
			want := Off
			switch {
			case module == radio.ModuleEnabled && ap == radio.ApDisabled:
				want = Net
			case module == radio.ModuleDisabled && ap == radio.ApEnabled:
				want = Ap
			case module == radio.ModuleEnabled && ap == radio.ApEnabled:
				want = Conflicting
			}

			assert.Equal(t, want, Derive(module, ap), "module %v, access point %v", module, ap)
		}
	}
}

func TestDeriveTransitionalStatesAreOff(t *testing.T) {
	assert.Equal(t, Off, Derive(radio.ModuleEnabling, radio.ApDisabled))
	assert.Equal(t, Off, Derive(radio.ModuleDisabled, radio.ApEnabling))
	assert.Equal(t, Off, Derive(radio.ModuleDisabled, radio.ApFailed))
	assert.Equal(t, Off, Derive(radio.ModuleUnknown, radio.ApEnabled))
}

func TestString(t *testing.T) {
	assert.Equal(t, "OFF_MODE", Off.String())
	assert.Equal(t, "NET_MODE", Net.String())
	assert.Equal(t, "APN_MODE", Ap.String())
	assert.Equal(t, "CONFLICTING", Conflicting.String())
	assert.Equal(t, "INVALID MODE", Mode(9).String())
}
