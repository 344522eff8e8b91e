// Package daemon runs the coordinator as a long lived service. It restores
// the last confirmed configuration, falls back to hosting an access point
// when the device stays offline, persists confirmed configurations and fans
// coordinator notifications out to metrics and event subscribers.
package daemon

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/go-errors/errors"
	"github.com/the-lightning-land/wifid/connectivity"
	"github.com/the-lightning-land/wifid/coordinator"
	"github.com/the-lightning-land/wifid/dispatch"
	"github.com/the-lightning-land/wifid/metrics"
	"github.com/the-lightning-land/wifid/mode"
	"github.com/the-lightning-land/wifid/radio"
	"github.com/the-lightning-land/wifid/wifidb"
	"golang.org/x/net/netutil"
)

const moduleStatePoll = 100 * time.Millisecond

type Daemon struct {
	*coordinator.Coordinator

	db               *wifidb.DB
	metrics          *metrics.Metrics
	reporter         *connectivity.NetReporter
	api              Api
	listen           []string
	maxConnections   int
	autoScanInterval time.Duration
	fallback         *radio.Descriptor
	fallbackTimeout  time.Duration
	log              Logger

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	doneOnce sync.Once
	restored chan struct{}

	persistedMtx sync.Mutex
	persisted    *coordinator.Configuration

	eventClients      map[uint32]*EventClient
	eventClientMtx    sync.Mutex
	nextEventClientID uint32
}

func NewDaemon(config *Config) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())

	d := &Daemon{
		Coordinator:      config.Coordinator,
		db:               config.DB,
		metrics:          config.Metrics,
		api:              config.Api,
		listen:           config.Listen,
		maxConnections:   config.MaxConnections,
		autoScanInterval: config.AutoScanInterval,
		fallback:         config.Fallback,
		fallbackTimeout:  config.FallbackTimeout,
		ctx:              ctx,
		cancel:           cancel,
		done:             make(chan struct{}),
		restored:         make(chan struct{}),
		eventClients:     make(map[uint32]*EventClient),
	}

	if config.Logger != nil {
		d.log = config.Logger
	} else {
		d.log = noopLogger{}
	}

	if d.metrics == nil {
		d.metrics = metrics.New()
	}

	d.reporter = connectivity.NewReporter(&connectivity.Config{
		Logger: d.log,
	})

	d.observe()

	if d.api != nil {
		d.api.SetDaemon(d)
	}

	return d
}

// observe takes the single observer slot of every category and fans the
// notifications out.
func (d *Daemon) observe() {
	d.OnModuleState(func(s radio.ModuleState) {
		d.metrics.ObserveModuleState(s)
		d.broadcast(ModuleStateEvent, s.String())
	})

	d.OnApState(func(s radio.ApState) {
		d.metrics.ObserveApState(s)

		if s == radio.ApEnabled {
			d.persist()
		}

		d.broadcast(ApStateEvent, s.String())
	})

	d.OnNetState(func(s radio.NetState) {
		d.metrics.ObserveNetState(s)
		d.reporter.Update(s)

		if s == radio.Connected {
			d.persist()
		}

		d.broadcast(NetStateEvent, s.String())
	})

	d.OnModeChange(func(from, to mode.Mode) {
		d.metrics.ObserveModeChange(from, to)
		d.broadcast(ModeEvent, &ModeChange{
			From: from.String(),
			To:   to.String(),
		})
	})

	d.OnScanResults(func(results []radio.ScanResult) {
		d.metrics.ObserveScanResults(results)
		d.broadcast(ScanResultsEvent, results)
	})

	d.OnRosterChange(func(change dispatch.RosterChange) {
		d.metrics.ObserveRosterChange(change)
		d.broadcast(RosterChangeEvent, &RosterChange{
			Kind:   change.Kind.String(),
			Client: change.Client,
		})
	})

	d.OnRoster(func(clients []radio.Client) {
		d.metrics.SetClients(len(clients))
		d.broadcast(RosterEvent, clients)
	})
}

type RosterChange struct {
	Kind   string       `json:"kind"`
	Client radio.Client `json:"client"`
}

// Run starts the coordinator and the api and blocks until Shutdown is called.
func (d *Daemon) Run() error {
	d.log.Infof("Starting daemon...")

	err := d.Coordinator.Start()
	if err != nil {
		return errors.Errorf("could not start coordinator: %v", err)
	}

	if d.api != nil {
		for _, addr := range d.listen {
			lis, err := net.Listen("tcp", addr)
			if err != nil {
				d.abortRun()
				return errors.Errorf("api unable to listen on %v: %v", addr, err)
			}

			if d.maxConnections > 0 {
				lis = netutil.LimitListener(lis, d.maxConnections)
			}

			d.log.Infof("Serving api on %v", lis.Addr())

			go func() {
				err := d.api.Serve(lis)
				if err != nil {
					d.log.Errorf("Could not serve api: %v", err)
				}
			}()
		}
	}

	d.restoreAutoScan()

	go func() {
		defer close(d.restored)
		d.restore(d.ctx)
	}()

	<-d.done

	return nil
}

// abortRun undoes a partially started Run.
func (d *Daemon) abortRun() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.api.Shutdown(ctx); err != nil {
		d.log.Errorf("Could not shut down api: %v", err)
	}

	if err := d.Coordinator.Stop(); err != nil {
		d.log.Errorf("Could not stop coordinator: %v", err)
	}
}

// Restored is closed once the startup restore, including a possible
// fallback, has finished.
func (d *Daemon) Restored() <-chan struct{} {
	return d.restored
}

// Connectivity reports whether the device is online.
func (d *Daemon) Connectivity() connectivity.Reporter {
	return d.reporter
}

// StartAutoScan starts the auto scan and remembers the preference.
func (d *Daemon) StartAutoScan(interval time.Duration) error {
	err := d.Coordinator.StartAutoScan(interval)
	if err != nil {
		return err
	}

	err = d.db.SetAutoScan(&wifidb.AutoScan{
		Enabled:  true,
		Interval: interval,
	})
	if err != nil {
		d.log.Warnf("Could not save auto scan preference: %v", err)
	}

	return nil
}

// StopAutoScan stops the auto scan and remembers the preference.
func (d *Daemon) StopAutoScan() {
	d.Coordinator.StopAutoScan()

	err := d.db.SetAutoScan(&wifidb.AutoScan{
		Enabled:  false,
		Interval: d.autoScanInterval,
	})
	if err != nil {
		d.log.Warnf("Could not save auto scan preference: %v", err)
	}
}

func (d *Daemon) restoreAutoScan() {
	autoScan, err := d.db.GetAutoScan()
	if err != nil {
		d.log.Warnf("Could not retrieve auto scan preference: %v", err)
	}

	if autoScan == nil {
		autoScan = &wifidb.AutoScan{
			Enabled:  d.autoScanInterval > 0,
			Interval: d.autoScanInterval,
		}
	}

	if !autoScan.Enabled {
		d.log.Debugf("Auto scan is off")
		return
	}

	err = d.Coordinator.StartAutoScan(autoScan.Interval)
	if err != nil {
		d.log.Warnf("Could not start auto scan: %v", err)
	}
}

func (d *Daemon) restore(ctx context.Context) {
	config, err := d.db.GetLastConfiguration()
	if err != nil {
		d.log.Warnf("Could not retrieve saved configuration: %v", err)
	}

	if config != nil {
		d.persistedMtx.Lock()
		d.persisted = config
		d.persistedMtx.Unlock()

		d.log.Infof("Will attempt restoring %v configuration %v", config.Kind, config.Descriptor)

		err = d.apply(ctx, config)
		if err != nil {
			d.log.Warnf("Could not restore configuration: %v", err)
		}
	} else {
		d.log.Infof("No saved configuration available")
	}

	if d.fallback == nil {
		return
	}

	if config != nil && config.Kind == coordinator.AccessPoint && err == nil {
		return
	}

	waitCtx, cancel := context.WithTimeout(ctx, d.fallbackTimeout)
	defer cancel()

	if d.reporter.WaitForStateChange(waitCtx, connectivity.Offline) {
		d.log.Infof("Device is online")
		return
	}

	if ctx.Err() != nil || d.Mode() == mode.Ap {
		return
	}

	d.log.Infof("Not online after %v, hosting fallback access point %v", d.fallbackTimeout, d.fallback)

	err = d.apply(ctx, &coordinator.Configuration{
		Kind:       coordinator.AccessPoint,
		Descriptor: *d.fallback,
	})
	if err != nil {
		d.log.Errorf("Could not host fallback access point: %v", err)
	}
}

// apply brings the radio into the role of config and applies it. It switches
// the other radio off first and waits for it to go down.
func (d *Daemon) apply(ctx context.Context, config *coordinator.Configuration) error {
	switch config.Kind {
	case coordinator.Station:
		if err := d.StopHost(ctx); err != nil {
			return err
		}

		if err := d.SetRadioEnabled(ctx, true); err != nil {
			return err
		}

		if err := d.waitForModule(ctx, radio.ModuleEnabled); err != nil {
			return err
		}

		return d.Connect(ctx, config.Descriptor)

	case coordinator.AccessPoint:
		if err := d.SetRadioEnabled(ctx, false); err != nil {
			return err
		}

		if err := d.waitForModule(ctx, radio.ModuleDisabled); err != nil {
			return err
		}

		return d.Host(ctx, config.Descriptor)

	default:
		return errors.Errorf("unknown configuration kind %q", config.Kind)
	}
}

func (d *Daemon) waitForModule(ctx context.Context, s radio.ModuleState) error {
	ticker := time.NewTicker(moduleStatePoll)
	defer ticker.Stop()

	for {
		if d.ModuleState() == s {
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.Errorf("radio did not become %v: %w", s, ctx.Err())
		case <-ticker.C:
		}
	}
}

// persist saves the last confirmed configuration if it changed.
func (d *Daemon) persist() {
	config, ok := d.LastConfiguration()
	if !ok {
		return
	}

	// the fallback access point is never remembered, the next start tries
	// the saved configuration again
	if d.fallback != nil && config.Kind == coordinator.AccessPoint && config.Descriptor == *d.fallback {
		return
	}

	d.persistedMtx.Lock()
	defer d.persistedMtx.Unlock()

	if d.persisted != nil && *d.persisted == config {
		return
	}

	err := d.db.SetLastConfiguration(&config)
	if err != nil {
		d.log.Errorf("Could not save configuration: %v", err)
		return
	}

	d.persisted = &config

	d.log.Infof("Saved %v configuration %v", config.Kind, config.Descriptor)
}

// Shutdown stops the api, the subscribers and the coordinator and makes Run
// return.
func (d *Daemon) Shutdown() {
	d.cancel()

	if d.api != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := d.api.Shutdown(ctx)
		cancel()

		if err != nil {
			d.log.Errorf("Could not shut down api: %v", err)
		}
	}

	d.cancelEventClients()

	err := d.Coordinator.Stop()
	if err != nil {
		d.log.Errorf("Could not stop coordinator: %v", err)
	}

	d.doneOnce.Do(func() {
		close(d.done)
	})
}
