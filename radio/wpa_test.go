package radio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/the-lightning-land/wifid/radio/wpa"
)

func TestStationState(t *testing.T) {
	tests := map[string]NetState{
		wpa.StateCompleted:         Connected,
		wpa.StateDisconnected:      Disconnected,
		wpa.StateInactive:          Disconnected,
		wpa.StateAssociating:       Connecting,
		wpa.StateFourWayHandshake:  Connecting,
		wpa.StateInterfaceDisabled: Suspended,
	}

	for state, want := range tests {
		got, ok := stationState(state)
		assert.True(t, ok, state)
		assert.Equal(t, want, got, state)
	}

	_, ok := stationState(wpa.StateUnknown)
	assert.False(t, ok)
}

func TestBssSecurity(t *testing.T) {
	assert.Equal(t, WPA3, bssSecurity(&wpa.Bss{Rsn: true, Sae: true}))
	assert.Equal(t, WPA2, bssSecurity(&wpa.Bss{Rsn: true, Wpa: true}))
	assert.Equal(t, WPA, bssSecurity(&wpa.Bss{Wpa: true}))
	assert.Equal(t, WEP, bssSecurity(&wpa.Bss{Privacy: true}))
	assert.Equal(t, Open, bssSecurity(&wpa.Bss{}))
}

func TestStationConfig(t *testing.T) {
	config, err := stationConfig(Descriptor{Ssid: "home", Security: WPA2, Key: "correct horse", Hidden: true})
	require.NoError(t, err)

	assert.Equal(t, wpa.NetworkConfig{
		"ssid":      "home",
		"key_mgmt":  "WPA-PSK",
		"psk":       "correct horse",
		"scan_ssid": uint32(1),
	}, config)

	config, err = stationConfig(Descriptor{Ssid: "cafe"})
	require.NoError(t, err)
	assert.Equal(t, "NONE", config["key_mgmt"])

	_, err = stationConfig(Descriptor{Ssid: "cafe", Security: WPA2})
	assert.ErrorIs(t, err, ErrInvalidDescriptor)
}

func TestAccessPointConfig(t *testing.T) {
	config, err := accessPointConfig(Descriptor{Ssid: "wifid", Security: WPA3, Key: "battery staple", Band: Band5GHz})
	require.NoError(t, err)

	assert.Equal(t, wpa.ModeAccessPoint, config["mode"])
	assert.Equal(t, uint32(5180), config["frequency"])
	assert.Equal(t, "SAE", config["key_mgmt"])

	_, err = accessPointConfig(Descriptor{Ssid: "wifid", Security: WEP, Key: "abcde"})
	assert.ErrorIs(t, err, ErrInvalidDescriptor)

	_, err = accessPointConfig(Descriptor{Ssid: "wifid", Security: WPA, Key: "battery staple"})
	assert.ErrorIs(t, err, ErrInvalidDescriptor)
}
