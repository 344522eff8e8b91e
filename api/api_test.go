package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/the-lightning-land/wifid/coordinator"
	"github.com/the-lightning-land/wifid/daemon"
	"github.com/the-lightning-land/wifid/metrics"
	"github.com/the-lightning-land/wifid/radio"
	"github.com/the-lightning-land/wifid/wifidb"
)

func newTestServer(t *testing.T, config *Config) *httptest.Server {
	t.Helper()

	db, err := wifidb.Open(&wifidb.Config{
		Dir: t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	mock := radio.NewMockRadio(&radio.MockRadioConfig{
		Networks: []radio.ScanResult{{
			Ssid:      "home",
			Bssid:     "aa:bb:cc:dd:ee:ff",
			Signal:    -40,
			Security:  radio.WPA2,
			Frequency: 2412,
		}},
	})

	c := coordinator.New(&coordinator.Config{
		Radio: mock,
	})

	if config.Metrics == nil {
		config.Metrics = metrics.New()
	}

	a := New(config)

	daemon.NewDaemon(&daemon.Config{
		Coordinator: c,
		DB:          db,
		Metrics:     config.Metrics,
		Api:         a,
	})

	require.NoError(t, c.Start())
	t.Cleanup(func() {
		_ = c.Stop()
	})

	srv := httptest.NewServer(a)
	t.Cleanup(srv.Close)

	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (int, map[string]interface{}) {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, bytes.NewBufferString(body))
	require.NoError(t, err)

	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	payload, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	if len(payload) > 0 {
		require.NoError(t, json.Unmarshal(payload, &decoded), string(payload))
	}

	return res.StatusCode, decoded
}

func TestGetWifi(t *testing.T) {
	srv := newTestServer(t, &Config{})

	code, res := do(t, srv, http.MethodGet, "/api/v1/wifi", "")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OFF_MODE", res["mode"])
	assert.Equal(t, "DISABLED", res["moduleState"])
	assert.Equal(t, "OFFLINE", res["connectivity"])
	assert.Equal(t, false, res["radioEnabled"])
}

func TestConnect(t *testing.T) {
	srv := newTestServer(t, &Config{})

	code, res := do(t, srv, http.MethodPatch, "/api/v1/wifi", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "NET_MODE", res["mode"])

	code, _ = do(t, srv, http.MethodPost, "/api/v1/wifi/connection", `{"ssid":"home","security":"wpa3","key":"short"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, srv, http.MethodPost, "/api/v1/wifi/connection", `{"ssid":"home","security":"wpa9"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, srv, http.MethodPost, "/api/v1/wifi/connection", `{`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, res = do(t, srv, http.MethodPost, "/api/v1/wifi/connection", `{"ssid":"home","security":"wpa2","key":"correct horse"}`)
	require.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "CONNECTED", res["netState"])
	assert.Equal(t, "home", res["ssid"])
	assert.Equal(t, "ONLINE", res["connectivity"])

	last := res["lastConfiguration"].(map[string]interface{})
	descriptor := last["descriptor"].(map[string]interface{})
	assert.Equal(t, "station", last["kind"])
	assert.Equal(t, "wpa2", descriptor["security"])
	assert.Equal(t, "********", descriptor["key"])

	code, res = do(t, srv, http.MethodDelete, "/api/v1/wifi/connection", "")
	require.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "DISCONNECTED", res["netState"])
}

func TestHostConflictsInNetMode(t *testing.T) {
	srv := newTestServer(t, &Config{})

	code, _ := do(t, srv, http.MethodPatch, "/api/v1/wifi", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, code)

	code, res := do(t, srv, http.MethodPost, "/api/v1/wifi/accesspoint", `{"ssid":"wifid","security":"open"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, res["error"], "mode conflict")

	code, _ = do(t, srv, http.MethodPost, "/api/v1/wifi/clients/refresh", "")
	assert.Equal(t, http.StatusConflict, code)
}

func TestAccessPoint(t *testing.T) {
	srv := newTestServer(t, &Config{})

	code, res := do(t, srv, http.MethodPost, "/api/v1/wifi/accesspoint", `{"ssid":"wifid","security":"open"}`)
	require.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "APN_MODE", res["mode"])

	code, res = do(t, srv, http.MethodPost, "/api/v1/wifi/clients/refresh", "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, res["clients"])

	code, res = do(t, srv, http.MethodDelete, "/api/v1/wifi/accesspoint", "")
	require.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "OFF_MODE", res["mode"])
}

func TestScan(t *testing.T) {
	srv := newTestServer(t, &Config{})

	code, _ := do(t, srv, http.MethodPost, "/api/v1/wifi/scans", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, res := do(t, srv, http.MethodGet, "/api/v1/wifi/networks", "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, res["networks"])

	do(t, srv, http.MethodPatch, "/api/v1/wifi", `{"enabled":true}`)

	code, _ = do(t, srv, http.MethodPost, "/api/v1/wifi/scans", "")
	require.Equal(t, http.StatusAccepted, code)

	code, res = do(t, srv, http.MethodGet, "/api/v1/wifi/networks", "")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, res["networks"], 1)
}

func TestAutoScan(t *testing.T) {
	srv := newTestServer(t, &Config{})

	code, _ := do(t, srv, http.MethodPut, "/api/v1/wifi/autoscan", `{"interval":"0s"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, srv, http.MethodPut, "/api/v1/wifi/autoscan", `{"interval":"soon"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, res := do(t, srv, http.MethodPut, "/api/v1/wifi/autoscan", `{"interval":"1m"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, res["active"])

	_, res = do(t, srv, http.MethodGet, "/api/v1/wifi", "")
	assert.Equal(t, true, res["autoScan"])
	assert.Equal(t, "1m0s", res["autoScanInterval"])

	code, res = do(t, srv, http.MethodDelete, "/api/v1/wifi/autoscan", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, res["active"])
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, &Config{
		RequestsPerSecond: 0.001,
		Burst:             1,
	})

	code, _ := do(t, srv, http.MethodPatch, "/api/v1/wifi", `{"enabled":true}`)
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, srv, http.MethodPatch, "/api/v1/wifi", `{"enabled":false}`)
	assert.Equal(t, http.StatusTooManyRequests, code)

	code, _ = do(t, srv, http.MethodGet, "/api/v1/wifi", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t, &Config{})

	do(t, srv, http.MethodPatch, "/api/v1/wifi", `{"enabled":true}`)

	res, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `wifid_requests_total{operation="set_radio_enabled",result="ok"} 1`)
	assert.Contains(t, string(body), `wifid_mode{mode="NET_MODE"} 1`)
}

func TestEvents(t *testing.T) {
	srv := newTestServer(t, &Config{})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/wifi/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	do(t, srv, http.MethodPatch, "/api/v1/wifi", `{"enabled":true}`)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))

	event := daemon.Event{}
	require.NoError(t, conn.ReadJSON(&event))

	assert.Equal(t, daemon.ModuleStateEvent, event.Kind)
	assert.Equal(t, "ENABLING", event.Data)
	assert.NotEmpty(t, event.Id)
}
