package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-errors/errors"
	"github.com/the-lightning-land/wifid/radio"
	"github.com/the-lightning-land/wifid/scan"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (a *Api) jsonResponse(w http.ResponseWriter, v interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		a.log.Errorf("Could not respond with JSON: %v", err)
	}
}

func (a *Api) jsonError(w http.ResponseWriter, message string, code int) {
	a.jsonResponse(w, &errorResponse{
		Error: message,
	}, code)
}

// requestError responds with the status matching the class of err.
func (a *Api) requestError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError

	switch {
	case radio.IsModeConflict(err):
		code = http.StatusConflict
	case radio.IsInvalid(err), errors.Is(err, scan.ErrInvalidInterval):
		code = http.StatusBadRequest
	case radio.IsUnavailable(err):
		code = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	}

	if code == http.StatusInternalServerError {
		a.log.Errorf("Request failed: %v", err)
	} else {
		a.log.Debugf("Request failed: %v", err)
	}

	a.jsonError(w, err.Error(), code)
}
