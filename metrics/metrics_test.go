package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/go-errors/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/the-lightning-land/wifid/dispatch"
	"github.com/the-lightning-land/wifid/mode"
	"github.com/the-lightning-land/wifid/radio"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	return string(body)
}

func TestModeIsOneHot(t *testing.T) {
	m := New()

	m.ObserveModeChange(mode.Off, mode.Ap)

	body := scrape(t, m)
	assert.Contains(t, body, `wifid_mode{mode="APN_MODE"} 1`)
	assert.Contains(t, body, `wifid_mode{mode="OFF_MODE"} 0`)
	assert.Contains(t, body, `wifid_mode_changes_total{from="OFF_MODE",to="APN_MODE"} 1`)
}

func TestClients(t *testing.T) {
	m := New()

	m.ObserveApState(radio.ApEnabled)
	m.ObserveRosterChange(dispatch.RosterChange{Kind: dispatch.Join})
	m.ObserveRosterChange(dispatch.RosterChange{Kind: dispatch.Join})
	m.ObserveRosterChange(dispatch.RosterChange{Kind: dispatch.Leave})

	body := scrape(t, m)
	assert.Contains(t, body, `wifid_ap_clients 1`)
	assert.Contains(t, body, `wifid_roster_changes_total{kind="join"} 2`)

	m.ObserveApState(radio.ApDisabled)
	assert.Contains(t, scrape(t, m), `wifid_ap_clients 0`)
}

func TestResult(t *testing.T) {
	assert.Equal(t, "ok", Result(nil))
	assert.Equal(t, "conflict", Result(errors.Errorf("host: %w", radio.ErrModeConflict)))
	assert.Equal(t, "invalid", Result(radio.ErrInvalidDescriptor))
	assert.Equal(t, "unavailable", Result(radio.Normalize(errors.New("dbus gone"))))
	assert.Equal(t, "error", Result(errors.New("boom")))
}
