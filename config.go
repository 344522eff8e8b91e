package main

import (
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/the-lightning-land/wifid/radio"
)

const (
	defaultDataDir         = "/var/lib/wifid"
	defaultRadio           = "wpa"
	defaultListen          = ":9000"
	defaultInterface       = "wlan0"
	defaultLeases          = "/var/lib/misc/dnsmasq.leases"
	defaultRateLimit       = 5
	defaultBurst           = 10
	defaultMaxConnections  = 32
	defaultRosterPoll      = 15 * time.Second
	defaultFallbackTimeout = 2 * time.Minute
)

type wpaConfig struct {
	Interface string `long:"interface" description:"The wireless interface managed by wpa_supplicant"`
	Leases    string `long:"leases" description:"The dnsmasq leases file used to name access point clients"`
}

type mockConfig struct {
	Delay time.Duration `long:"delay" description:"Delay before the mock radio completes a transition"`
}

type apiConfig struct {
	RateLimit      float64 `long:"ratelimit" description:"Radio changing requests per second, 0 disables the limit"`
	Burst          int     `long:"burst" description:"Burst of radio changing requests"`
	MaxConnections int     `long:"maxconnections" description:"Maximum concurrent api connections per listener, 0 disables the limit"`
}

type scanConfig struct {
	Interval time.Duration `long:"interval" description:"Auto scan interval used until one is set through the api, 0 disables auto scan"`
}

type rosterConfig struct {
	Poll time.Duration `long:"poll" description:"Interval for refreshing access point clients, 0 disables polling"`
}

type fallbackConfig struct {
	Ssid     string        `long:"ssid" description:"SSID of the access point hosted when not online after startup, empty disables the fallback"`
	Security string        `long:"security" description:"Security of the fallback access point" choice:"open" choice:"wpa2" choice:"wpa3"`
	Key      string        `long:"key" description:"Passphrase of the fallback access point"`
	Band     string        `long:"band" description:"Band of the fallback access point" choice:"auto" choice:"2.4ghz" choice:"5ghz"`
	Timeout  time.Duration `long:"timeout" description:"Time to wait for connectivity before hosting the fallback access point"`
}

type profilingConfig struct {
	Listen string `long:"listen" description:"Address to serve profiling information on, empty disables profiling"`
}

type config struct {
	ShowVersion bool     `short:"V" long:"version" description:"Display version information and exit"`
	Debug       bool     `long:"debug" description:"Start daemon in debug mode"`
	ConfigFile  string   `long:"configfile" description:"Path to an ini configuration file"`
	DataDir     string   `long:"datadir" description:"The directory to store wifid's data within"`
	Radio       string   `long:"radio" description:"The radio driver" choice:"wpa" choice:"mock"`
	Listen      []string `long:"listen" description:"Add an interface/port to listen for api connections"`

	Wpa       *wpaConfig       `group:"WPA" namespace:"wpa"`
	Mock      *mockConfig      `group:"Mock" namespace:"mock"`
	Api       *apiConfig       `group:"API" namespace:"api"`
	Scan      *scanConfig      `group:"Scan" namespace:"scan"`
	Roster    *rosterConfig    `group:"Roster" namespace:"roster"`
	Fallback  *fallbackConfig  `group:"Fallback" namespace:"fallback"`
	Profiling *profilingConfig `group:"Profiling" namespace:"profiling"`
}

func defaultConfig() *config {
	return &config{
		DataDir: defaultDataDir,
		Radio:   defaultRadio,
		Wpa: &wpaConfig{
			Interface: defaultInterface,
			Leases:    defaultLeases,
		},
		Mock: &mockConfig{},
		Api: &apiConfig{
			RateLimit:      defaultRateLimit,
			Burst:          defaultBurst,
			MaxConnections: defaultMaxConnections,
		},
		Scan: &scanConfig{},
		Roster: &rosterConfig{
			Poll: defaultRosterPoll,
		},
		Fallback: &fallbackConfig{
			Security: "wpa2",
			Band:     "auto",
			Timeout:  defaultFallbackTimeout,
		},
		Profiling: &profilingConfig{},
	}
}

// loadConfig starts from the defaults, applies the config file if one is
// given and finally the command line, which takes precedence.
func loadConfig() (*config, error) {
	preCfg := defaultConfig()

	_, err := flags.Parse(preCfg)
	if err != nil {
		return nil, err
	}

	if preCfg.ShowVersion || preCfg.ConfigFile == "" {
		return finishConfig(preCfg)
	}

	cfg := defaultConfig()

	err = flags.IniParse(preCfg.ConfigFile, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read config file %v", preCfg.ConfigFile)
	}

	_, err = flags.Parse(cfg)
	if err != nil {
		return nil, err
	}

	return finishConfig(cfg)
}

func finishConfig(cfg *config) (*config, error) {
	if len(cfg.Listen) == 0 {
		cfg.Listen = []string{defaultListen}
	}

	if cfg.Fallback.Ssid != "" && cfg.Fallback.Timeout <= 0 {
		return nil, errors.New("fallback timeout must be positive")
	}

	return cfg, nil
}

// fallbackDescriptor returns nil if no fallback access point is configured.
func (c *config) fallbackDescriptor() (*radio.Descriptor, error) {
	if c.Fallback.Ssid == "" {
		return nil, nil
	}

	security, err := radio.ParseSecurity(c.Fallback.Security)
	if err != nil {
		return nil, err
	}

	band, err := radio.ParseBand(c.Fallback.Band)
	if err != nil {
		return nil, err
	}

	d := &radio.Descriptor{
		Ssid:     c.Fallback.Ssid,
		Security: security,
		Key:      c.Fallback.Key,
		Band:     band,
	}

	err = d.Validate()
	if err != nil {
		return nil, errors.Wrap(err, "invalid fallback access point")
	}

	return d, nil
}
