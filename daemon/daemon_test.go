package daemon

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/the-lightning-land/wifid/connectivity"
	"github.com/the-lightning-land/wifid/coordinator"
	"github.com/the-lightning-land/wifid/mode"
	"github.com/the-lightning-land/wifid/radio"
	"github.com/the-lightning-land/wifid/wifidb"
)

var (
	home = radio.Descriptor{
		Ssid:     "home",
		Security: radio.WPA2,
		Key:      "correct horse",
	}

	fallback = radio.Descriptor{
		Ssid:     "wifid-setup",
		Security: radio.WPA2,
		Key:      "battery staple",
	}
)

type testDaemon struct {
	*Daemon
	mock *radio.MockRadio
	db   *wifidb.DB
}

func newTestDaemon(t *testing.T, setup func(db *wifidb.DB, config *Config)) *testDaemon {
	t.Helper()

	db, err := wifidb.Open(&wifidb.Config{
		Dir: t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	mock := radio.NewMockRadio(&radio.MockRadioConfig{})

	config := &Config{
		Coordinator: coordinator.New(&coordinator.Config{
			Radio: mock,
		}),
		DB: db,
	}

	if setup != nil {
		setup(db, config)
	}

	d := NewDaemon(config)

	done := make(chan error)
	go func() {
		done <- d.Run()
	}()

	t.Cleanup(func() {
		d.Shutdown()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Error("daemon did not stop")
		}
	})

	select {
	case <-d.Restored():
	case <-time.After(time.Second):
		t.Fatal("daemon did not restore")
	}

	return &testDaemon{
		Daemon: d,
		mock:   mock,
		db:     db,
	}
}

func TestPersistsConfirmedConfiguration(t *testing.T) {
	d := newTestDaemon(t, nil)

	config, err := d.db.GetLastConfiguration()
	require.NoError(t, err)
	assert.Nil(t, config)

	require.NoError(t, d.SetRadioEnabled(context.Background(), true))
	require.NoError(t, d.Connect(context.Background(), home))

	config, err = d.db.GetLastConfiguration()
	require.NoError(t, err)
	require.NotNil(t, config)
	assert.Equal(t, coordinator.Configuration{Kind: coordinator.Station, Descriptor: home}, *config)

	assert.Equal(t, connectivity.Online, d.Connectivity().CurrentState())
}

func TestRestoresStation(t *testing.T) {
	d := newTestDaemon(t, func(db *wifidb.DB, config *Config) {
		require.NoError(t, db.SetLastConfiguration(&coordinator.Configuration{
			Kind:       coordinator.Station,
			Descriptor: home,
		}))
	})

	assert.Equal(t, mode.Net, d.Mode())
	assert.Equal(t, radio.Connected, d.NetState())

	target, ok := d.mock.LastTarget()
	require.True(t, ok)
	assert.Equal(t, home, target)
}

func TestRestoresAccessPoint(t *testing.T) {
	d := newTestDaemon(t, func(db *wifidb.DB, config *Config) {
		require.NoError(t, db.SetLastConfiguration(&coordinator.Configuration{
			Kind:       coordinator.AccessPoint,
			Descriptor: home,
		}))
	})

	assert.Equal(t, mode.Ap, d.Mode())
	assert.Equal(t, "home", d.Status().Ssid)
}

func TestFallsBackToAccessPoint(t *testing.T) {
	d := newTestDaemon(t, func(db *wifidb.DB, config *Config) {
		config.Fallback = &fallback
		config.FallbackTimeout = 20 * time.Millisecond
	})

	assert.Equal(t, mode.Ap, d.Mode())
	assert.Equal(t, "wifid-setup", d.Status().Ssid)

	// the fallback is not remembered
	config, err := d.db.GetLastConfiguration()
	require.NoError(t, err)
	assert.Nil(t, config)
}

func TestNoFallbackWhenOnline(t *testing.T) {
	d := newTestDaemon(t, func(db *wifidb.DB, config *Config) {
		config.Fallback = &fallback
		config.FallbackTimeout = time.Second

		require.NoError(t, db.SetLastConfiguration(&coordinator.Configuration{
			Kind:       coordinator.Station,
			Descriptor: home,
		}))
	})

	assert.Equal(t, mode.Net, d.Mode())
	assert.Equal(t, 0, d.mock.Calls("StartAccessPoint"))
}

func TestEvents(t *testing.T) {
	d := newTestDaemon(t, nil)

	client := d.SubscribeEvents()

	require.NoError(t, d.SetRadioEnabled(context.Background(), true))

	var kinds []string
	for i := 0; i < 3; i++ {
		select {
		case event := <-client.Events:
			assert.NotEmpty(t, event.Id)
			kinds = append(kinds, event.Kind)
		case <-time.After(time.Second):
			t.Fatal("missing event")
		}
	}

	assert.Equal(t, []string{ModuleStateEvent, ModuleStateEvent, ModeEvent}, kinds)

	require.NoError(t, client.Cancel())
	require.NoError(t, client.Cancel())

	_, ok := <-client.Events
	assert.False(t, ok)
}

func TestAutoScanPreference(t *testing.T) {
	d := newTestDaemon(t, nil)

	require.NoError(t, d.StartAutoScan(time.Minute))
	assert.True(t, d.AutoScanActive())

	autoScan, err := d.db.GetAutoScan()
	require.NoError(t, err)
	assert.Equal(t, &wifidb.AutoScan{Enabled: true, Interval: time.Minute}, autoScan)

	d.StopAutoScan()
	assert.False(t, d.AutoScanActive())

	autoScan, err = d.db.GetAutoScan()
	require.NoError(t, err)
	assert.False(t, autoScan.Enabled)
}

func TestRestoresAutoScanPreference(t *testing.T) {
	d := newTestDaemon(t, func(db *wifidb.DB, config *Config) {
		config.AutoScanInterval = time.Minute
		require.NoError(t, db.SetAutoScan(&wifidb.AutoScan{Enabled: false}))
	})

	assert.False(t, d.AutoScanActive())
}

type stubApi struct {
	mu       sync.Mutex
	shutdown bool
}

func (a *stubApi) SetDaemon(d *Daemon) {}

func (a *stubApi) Serve(l net.Listener) error {
	return l.Close()
}

func (a *stubApi) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	a.shutdown = true
	a.mu.Unlock()

	return nil
}

func TestRunStopsCoordinatorWhenListenFails(t *testing.T) {
	db, err := wifidb.Open(&wifidb.Config{
		Dir: t.TempDir(),
	})
	require.NoError(t, err)
	defer db.Close()

	mock := radio.NewMockRadio(&radio.MockRadioConfig{})
	coord := coordinator.New(&coordinator.Config{
		Radio: mock,
	})
	api := &stubApi{}

	d := NewDaemon(&Config{
		Coordinator: coord,
		DB:          db,
		Api:         api,
		Listen:      []string{"127.0.0.1:-1"},
	})

	assert.Error(t, d.Run())

	api.mu.Lock()
	assert.True(t, api.shutdown)
	api.mu.Unlock()

	// a stopped coordinator can be started again
	require.NoError(t, coord.Start())
	require.NoError(t, coord.Stop())
}
