package daemon

import (
	"time"

	"github.com/the-lightning-land/wifid/coordinator"
	"github.com/the-lightning-land/wifid/metrics"
	"github.com/the-lightning-land/wifid/radio"
	"github.com/the-lightning-land/wifid/wifidb"
)

type Config struct {
	Coordinator *coordinator.Coordinator
	DB          *wifidb.DB
	Metrics     *metrics.Metrics
	Api         Api
	// Listen holds the addresses the api is served on.
	Listen []string
	// MaxConnections limits concurrent api connections per listener. Zero
	// means no limit.
	MaxConnections int
	// AutoScanInterval is used when no auto scan preference was saved yet.
	// Zero leaves auto scan off.
	AutoScanInterval time.Duration
	// Fallback is hosted when the device is not online within
	// FallbackTimeout after startup.
	Fallback        *radio.Descriptor
	FallbackTimeout time.Duration
	Logger          Logger
}
