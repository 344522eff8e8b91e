package api

import (
	"context"
	"net/http"

	"github.com/the-lightning-land/wifid/radio"
)

type clientsResponse struct {
	Clients []radio.Client `json:"clients"`
}

func (a *Api) handleGetClients() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.jsonResponse(w, &clientsResponse{
			Clients: a.daemon.Clients(),
		}, http.StatusOK)
	}
}

func (a *Api) handlePostClientsRefresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		clients, err := a.daemon.RefreshRoster(ctx)
		a.observe("refresh_roster", err)
		if err != nil {
			a.requestError(w, err)
			return
		}

		if clients == nil {
			clients = []radio.Client{}
		}

		a.jsonResponse(w, &clientsResponse{
			Clients: clients,
		}, http.StatusOK)
	}
}
