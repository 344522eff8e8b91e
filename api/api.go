package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-errors/errors"
	"github.com/gorilla/mux"
	"github.com/the-lightning-land/wifid/daemon"
	"github.com/the-lightning-land/wifid/metrics"
	"golang.org/x/time/rate"
)

type Config struct {
	Metrics *metrics.Metrics
	// RequestsPerSecond limits requests that change the radio. Zero
	// disables the limit.
	RequestsPerSecond float64
	Burst             int
	Log               Logger
}

type Api struct {
	daemon  *daemon.Daemon
	router  *mux.Router
	server  *http.Server
	metrics *metrics.Metrics
	limiter *rate.Limiter
	log     Logger
}

// check Api compliance to its interface during compile time
var _ daemon.Api = (*Api)(nil)

func New(config *Config) *Api {
	api := &Api{
		router:  mux.NewRouter(),
		metrics: config.Metrics,
	}

	if config.Log != nil {
		api.log = config.Log
	} else {
		api.log = noopLogger{}
	}

	if config.RequestsPerSecond > 0 {
		burst := config.Burst
		if burst < 1 {
			burst = 1
		}

		api.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}

	api.server = &http.Server{
		Handler:           api.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	v1 := api.router.PathPrefix("/api/v1").Subrouter()
	v1.Use(api.limit)

	v1.Handle("/wifi", api.handleGetWifi()).Methods(http.MethodGet)
	v1.Handle("/wifi", api.handlePatchWifi()).Methods(http.MethodPatch)

	v1.Handle("/wifi/connection", api.handlePostConnection()).Methods(http.MethodPost)
	v1.Handle("/wifi/connection", api.handleDeleteConnection()).Methods(http.MethodDelete)

	v1.Handle("/wifi/accesspoint", api.handlePostAccessPoint()).Methods(http.MethodPost)
	v1.Handle("/wifi/accesspoint", api.handleDeleteAccessPoint()).Methods(http.MethodDelete)

	v1.Handle("/wifi/scans", api.handlePostScan()).Methods(http.MethodPost)
	v1.Handle("/wifi/networks", api.handleGetNetworks()).Methods(http.MethodGet)
	v1.Handle("/wifi/autoscan", api.handlePutAutoScan()).Methods(http.MethodPut)
	v1.Handle("/wifi/autoscan", api.handleDeleteAutoScan()).Methods(http.MethodDelete)

	v1.Handle("/wifi/clients", api.handleGetClients()).Methods(http.MethodGet)
	v1.Handle("/wifi/clients/refresh", api.handlePostClientsRefresh()).Methods(http.MethodPost)

	v1.Handle("/wifi/events", api.handleGetEvents()).Methods(http.MethodGet)

	if api.metrics != nil {
		api.router.Handle("/metrics", api.metrics.Handler()).Methods(http.MethodGet)
	}

	return api
}

func (a *Api) SetDaemon(d *daemon.Daemon) {
	a.daemon = d
}

func (a *Api) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *Api) Serve(l net.Listener) error {
	err := a.server.Serve(l)
	if err != nil && err != http.ErrServerClosed {
		return errors.Errorf("Unable to serve api: %v", err)
	}

	return nil
}

func (a *Api) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if err != nil {
		return errors.Errorf("could not shut down api: %v", err)
	}

	return nil
}

// limit rate limits every request that is not a plain read.
func (a *Api) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.limiter != nil && r.Method != http.MethodGet && !a.limiter.Allow() {
			a.jsonError(w, "Too many requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// observe counts a request against the coordinator.
func (a *Api) observe(operation string, err error) {
	if a.metrics != nil {
		a.metrics.ObserveRequest(operation, err)
	}
}
