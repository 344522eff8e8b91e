package radio

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	reports []interface{}
	changed int
}

func (r *recorder) add(v interface{}) {
	r.mu.Lock()
	r.reports = append(r.reports, v)
	r.mu.Unlock()
}

func (r *recorder) HandleModuleState(s ModuleState) {
	r.add(s)
}

func (r *recorder) HandleApState(s ApState) {
	r.add(s)
}

func (r *recorder) HandleNetState(s NetState) {
	r.add(s)
}

func (r *recorder) HandleScanResults(results []ScanResult) {
	r.add(len(results))
}

func (r *recorder) HandleClientsChanged() {
	r.mu.Lock()
	r.changed++
	r.mu.Unlock()
}

func (r *recorder) take() []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	reports := r.reports
	r.reports = nil

	return reports
}

func startMock(t *testing.T, config *MockRadioConfig) (*MockRadio, *recorder) {
	t.Helper()

	m := NewMockRadio(config)
	r := &recorder{}

	require.NoError(t, m.Start(r))
	assert.Equal(t, []interface{}{ModuleDisabled, ApDisabled, Disconnected}, r.take())

	return m, r
}

func TestMockStation(t *testing.T) {
	m, r := startMock(t, &MockRadioConfig{
		Networks: []ScanResult{{Ssid: "home"}, {Ssid: "cafe"}},
	})

	assert.ErrorIs(t, m.Scan(context.Background()), ErrRadioUnavailable)
	assert.ErrorIs(t, m.Connect(context.Background(), Descriptor{Ssid: "home"}), ErrRadioUnavailable)

	require.NoError(t, m.SetModuleEnabled(context.Background(), true))
	assert.Equal(t, []interface{}{ModuleEnabling, ModuleEnabled}, r.take())

	require.NoError(t, m.Scan(context.Background()))
	assert.Equal(t, []interface{}{2}, r.take())

	require.NoError(t, m.Connect(context.Background(), Descriptor{Ssid: "home"}))
	assert.Equal(t, []interface{}{Connecting, Connected}, r.take())

	target, ok := m.LastTarget()
	require.True(t, ok)
	assert.Equal(t, "home", target.Ssid)

	require.NoError(t, m.SetModuleEnabled(context.Background(), false))
	assert.Equal(t, []interface{}{ModuleDisabling, ModuleDisabled, Disconnected}, r.take())

	assert.Equal(t, 2, m.Calls("SetModuleEnabled"))
}

func TestMockAccessPoint(t *testing.T) {
	m, r := startMock(t, &MockRadioConfig{
		Clients: []Client{{Address: "aa:bb:cc:00:00:01"}},
	})

	_, err := m.ConnectedClients(context.Background())
	assert.ErrorIs(t, err, ErrRadioUnavailable)

	require.NoError(t, m.StartAccessPoint(context.Background(), Descriptor{Ssid: "wifid"}))
	assert.Equal(t, []interface{}{ApEnabling, ApEnabled}, r.take())

	clients, err := m.ConnectedClients(context.Background())
	require.NoError(t, err)
	assert.Len(t, clients, 1)

	m.SetClients(nil)
	assert.Equal(t, 1, r.changed)

	require.NoError(t, m.StopAccessPoint(context.Background()))
	assert.Equal(t, []interface{}{ApDisabling, ApDisabled}, r.take())
}

func TestMockAccessPointConflictsWithModule(t *testing.T) {
	m, _ := startMock(t, &MockRadioConfig{})

	require.NoError(t, m.SetModuleEnabled(context.Background(), true))

	assert.ErrorIs(t, m.StartAccessPoint(context.Background(), Descriptor{Ssid: "wifid"}), ErrModeConflict)
}

func TestMockFailures(t *testing.T) {
	m, r := startMock(t, &MockRadioConfig{})

	m.FailNext()
	require.NoError(t, m.StartAccessPoint(context.Background(), Descriptor{Ssid: "wifid"}))
	assert.Equal(t, []interface{}{ApEnabling, ApFailed}, r.take())

	m.SetAbsent(true)
	assert.ErrorIs(t, m.StartAccessPoint(context.Background(), Descriptor{Ssid: "wifid"}), ErrRadioUnavailable)
	assert.ErrorIs(t, m.SetModuleEnabled(context.Background(), true), ErrRadioUnavailable)
	assert.Empty(t, r.take())
}

func TestMockManual(t *testing.T) {
	m, r := startMock(t, &MockRadioConfig{})
	m.SetManual(true)

	require.NoError(t, m.SetModuleEnabled(context.Background(), true))
	assert.Equal(t, []interface{}{ModuleEnabling}, r.take())

	m.EmitModuleState(ModuleEnabled)
	m.EmitModuleState(ModuleState(99))
	assert.Equal(t, []interface{}{ModuleEnabled, ModuleState(99)}, r.take())

	// invalid reports do not change the simulated state
	require.NoError(t, m.Connect(context.Background(), Descriptor{Ssid: "home"}))
	assert.Equal(t, []interface{}{Connecting}, r.take())
}

func TestMockDelay(t *testing.T) {
	m, r := startMock(t, &MockRadioConfig{
		Delay: 5 * time.Millisecond,
	})

	require.NoError(t, m.SetModuleEnabled(context.Background(), true))
	assert.Equal(t, []interface{}{ModuleEnabling}, r.take())

	assert.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.reports) == 1 && r.reports[0] == ModuleEnabled
	}, time.Second, time.Millisecond)
}
