package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/the-lightning-land/wifid/radio"
)

type networksResponse struct {
	Networks []radio.ScanResult `json:"networks"`
}

type autoScanRequest struct {
	Interval string `json:"interval"`
}

type autoScanResponse struct {
	Active   bool   `json:"active"`
	Interval string `json:"interval,omitempty"`
}

func (a *Api) handlePostScan() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		err := a.daemon.ScanOnce(ctx)
		a.observe("scan", err)
		if err != nil {
			a.requestError(w, err)
			return
		}

		w.WriteHeader(http.StatusAccepted)
	}
}

func (a *Api) handleGetNetworks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		networks := a.daemon.ScanResults()
		if networks == nil {
			networks = []radio.ScanResult{}
		}

		a.jsonResponse(w, &networksResponse{
			Networks: networks,
		}, http.StatusOK)
	}
}

func (a *Api) handlePutAutoScan() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := autoScanRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			a.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}

		interval, err := time.ParseDuration(req.Interval)
		if err != nil {
			a.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}

		err = a.daemon.StartAutoScan(interval)
		a.observe("start_auto_scan", err)
		if err != nil {
			a.requestError(w, err)
			return
		}

		a.jsonResponse(w, &autoScanResponse{
			Active:   true,
			Interval: interval.String(),
		}, http.StatusOK)
	}
}

func (a *Api) handleDeleteAutoScan() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.daemon.StopAutoScan()
		a.observe("stop_auto_scan", nil)

		a.jsonResponse(w, &autoScanResponse{
			Active: false,
		}, http.StatusOK)
	}
}
