package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/the-lightning-land/wifid/radio"
)

const requestTimeout = 10 * time.Second

type configurationResponse struct {
	Kind       string           `json:"kind"`
	Descriptor radio.Descriptor `json:"descriptor"`
}

type wifiResponse struct {
	Mode              string                 `json:"mode"`
	ModuleState       string                 `json:"moduleState"`
	ApState           string                 `json:"apState"`
	NetState          string                 `json:"netState"`
	RadioEnabled      bool                   `json:"radioEnabled"`
	Ssid              string                 `json:"ssid,omitempty"`
	Connectivity      string                 `json:"connectivity"`
	AutoScan          bool                   `json:"autoScan"`
	AutoScanInterval  string                 `json:"autoScanInterval,omitempty"`
	Clients           int                    `json:"clients"`
	LastConfiguration *configurationResponse `json:"lastConfiguration,omitempty"`
}

type patchWifiRequest struct {
	Enabled *bool `json:"enabled"`
}

func (a *Api) wifiResponse() *wifiResponse {
	status := a.daemon.Status()

	res := &wifiResponse{
		Mode:         status.Mode.String(),
		ModuleState:  status.Module.String(),
		ApState:      status.Ap.String(),
		NetState:     status.Net.String(),
		RadioEnabled: a.daemon.RadioEnabled(),
		Ssid:         status.Ssid,
		Connectivity: a.daemon.Connectivity().CurrentState().String(),
		AutoScan:     status.AutoScan,
		Clients:      status.Clients,
	}

	if status.AutoScan {
		res.AutoScanInterval = status.AutoScanInterval.String()
	}

	if last, ok := a.daemon.LastConfiguration(); ok {
		res.LastConfiguration = &configurationResponse{
			Kind:       string(last.Kind),
			Descriptor: last.Descriptor.Redacted(),
		}
	}

	return res
}

func (a *Api) handleGetWifi() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.jsonResponse(w, a.wifiResponse(), http.StatusOK)
	}
}

func (a *Api) handlePatchWifi() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := patchWifiRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			a.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if req.Enabled != nil {
			ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
			defer cancel()

			err := a.daemon.SetRadioEnabled(ctx, *req.Enabled)
			a.observe("set_radio_enabled", err)
			if err != nil {
				a.requestError(w, err)
				return
			}
		}

		a.jsonResponse(w, a.wifiResponse(), http.StatusOK)
	}
}

func (a *Api) decodeDescriptor(w http.ResponseWriter, r *http.Request) (radio.Descriptor, bool) {
	d := radio.Descriptor{}

	err := json.NewDecoder(r.Body).Decode(&d)
	if err != nil {
		a.jsonError(w, err.Error(), http.StatusBadRequest)
		return d, false
	}

	return d, true
}

func (a *Api) handlePostConnection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := a.decodeDescriptor(w, r)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		err := a.daemon.Connect(ctx, d)
		a.observe("connect", err)
		if err != nil {
			a.requestError(w, err)
			return
		}

		a.jsonResponse(w, a.wifiResponse(), http.StatusAccepted)
	}
}

func (a *Api) handleDeleteConnection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		err := a.daemon.Disconnect(ctx)
		a.observe("disconnect", err)
		if err != nil {
			a.requestError(w, err)
			return
		}

		a.jsonResponse(w, a.wifiResponse(), http.StatusAccepted)
	}
}

func (a *Api) handlePostAccessPoint() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := a.decodeDescriptor(w, r)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		err := a.daemon.Host(ctx, d)
		a.observe("host", err)
		if err != nil {
			a.requestError(w, err)
			return
		}

		a.jsonResponse(w, a.wifiResponse(), http.StatusAccepted)
	}
}

func (a *Api) handleDeleteAccessPoint() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		err := a.daemon.StopHost(ctx)
		a.observe("stop_host", err)
		if err != nil {
			a.requestError(w, err)
			return
		}

		a.jsonResponse(w, a.wifiResponse(), http.StatusAccepted)
	}
}
