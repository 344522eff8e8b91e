package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/the-lightning-land/wifid/api"
	"github.com/the-lightning-land/wifid/coordinator"
	"github.com/the-lightning-land/wifid/daemon"
	"github.com/the-lightning-land/wifid/metrics"
	"github.com/the-lightning-land/wifid/radio"
	"github.com/the-lightning-land/wifid/wifidb"
	// Blank import to set up profiling HTTP handlers.
	_ "net/http/pprof"
)

var (
	// commit stores the current commit hash of this build. This should be set using -ldflags during compilation.
	Commit string
	// version stores the version string of this build. This should be set using -ldflags during compilation.
	Version string
	// date stores the date of this build. This should be set using -ldflags during compilation.
	Date string
)

// wifidMain is the true entry point for wifid. This is required since defers
// created in the top-level scope of a main method aren't executed if os.Exit() is called.
func wifidMain() error {
	logger := log.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(log.InfoLevel)

	// Load CLI configuration and defaults
	cfg, err := loadConfig()
	if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
		return nil
	} else if err != nil {
		return errors.Errorf("Failed parsing arguments: %v", err)
	}

	// Set logger into debug mode if called with --debug
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
		logger.Info("Setting debug mode.")
	}

	logger.Debug("Loaded config.")

	// Print version of the daemon
	logger.Infof("Version %s (commit %s)", Version, Commit)
	logger.Infof("Built on %s", Date)

	// Stop here if only version was requested
	if cfg.ShowVersion {
		return nil
	}

	if cfg.Profiling.Listen != "" {
		go func() {
			logger.Infof("Starting profiling server on %v", cfg.Profiling.Listen)
			// Redirect the root path
			http.Handle("/", http.RedirectHandler("/debug/pprof", http.StatusSeeOther))
			// All other handlers are registered on DefaultServeMux through the import of pprof
			err := http.ListenAndServe(cfg.Profiling.Listen, nil)
			if err != nil {
				logger.Errorf("Could not run profiler: %v", err)
			}
		}()
	}

	fallback, err := cfg.fallbackDescriptor()
	if err != nil {
		return err
	}

	// wifid.db persistently stores the last confirmed configuration
	wifiDB, err := wifidb.Open(&wifidb.Config{
		Dir:    cfg.DataDir,
		Logger: logger.WithField("system", "db"),
	})
	if err != nil {
		return errors.Errorf("Could not open wifid.db: %v", err)
	}

	logger.Infof("Opened wifid.db")

	defer func() {
		err := wifiDB.Close()
		if err != nil {
			logger.Errorf("Could not close wifid.db: %v", err)
		} else {
			logger.Info("Closed wifid.db.")
		}
	}()

	// The radio driver, which is only ever talked to by the coordinator
	var r radio.Radio

	switch cfg.Radio {
	case "wpa":
		r = radio.NewWpaRadio(&radio.WpaRadioConfig{
			Interface: cfg.Wpa.Interface,
			Leases:    cfg.Wpa.Leases,
			Logger:    logger.WithField("system", "radio"),
		})

		logger.Infof("Created wpa_supplicant radio on %v.", cfg.Wpa.Interface)
	case "mock":
		r = radio.NewMockRadio(&radio.MockRadioConfig{
			Delay:  cfg.Mock.Delay,
			Logger: logger.WithField("system", "radio"),
		})

		logger.Info("Created a mock radio.")
	default:
		return errors.Errorf("Unknown radio type %v", cfg.Radio)
	}

	c := coordinator.New(&coordinator.Config{
		Radio:      r,
		RosterPoll: cfg.Roster.Poll,
		Logger:     logger.WithField("system", "coordinator"),
	})

	logger.Infof("Created coordinator.")

	m := metrics.New()

	a := api.New(&api.Config{
		Metrics:           m,
		RequestsPerSecond: cfg.Api.RateLimit,
		Burst:             cfg.Api.Burst,
		Log:               logger.WithField("system", "api"),
	})

	logger.Infof("Created API")

	// central controller for everything wifid does
	d := daemon.NewDaemon(&daemon.Config{
		Coordinator:      c,
		DB:               wifiDB,
		Metrics:          m,
		Api:              a,
		Listen:           cfg.Listen,
		MaxConnections:   cfg.Api.MaxConnections,
		AutoScanInterval: cfg.Scan.Interval,
		Fallback:         fallback,
		FallbackTimeout:  cfg.Fallback.Timeout,
		Logger:           logger.WithField("system", "daemon"),
	})

	logger.Infof("Created daemon.")

	// Handle interrupt signals correctly
	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
		sig := <-signals
		logger.Info(sig)
		logger.Info("Received an interrupt, stopping daemon...")
		d.Shutdown()
	}()

	// blocks until the daemon is shut down
	err = d.Run()
	if err != nil {
		d.Shutdown()
		return errors.Errorf("Failed running daemon: %v", err)
	}

	// finish with no error
	return nil
}

func main() {
	// Call the "real" main in a nested manner so the defers will properly
	// be executed in the case of a graceful shutdown.
	if err := wifidMain(); err != nil {
		log.WithError(err).Println("Failed running wifid.")
		os.Exit(1)
	}
}
