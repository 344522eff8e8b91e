package radio

import (
	"context"
	"encoding/hex"
	"net"
	"strings"

	"github.com/go-errors/errors"
)

// Security is the kind of protection a network uses.
type Security int

const (
	Open Security = iota
	WEP
	WPA
	WPA2
	WPA3
)

func (s Security) String() string {
	switch s {
	case Open:
		return "open"
	case WEP:
		return "wep"
	case WPA:
		return "wpa"
	case WPA2:
		return "wpa2"
	case WPA3:
		return "wpa3"
	default:
		return "unknown"
	}
}

// ParseSecurity is the inverse of Security.String.
func ParseSecurity(s string) (Security, error) {
	switch strings.ToLower(s) {
	case "", "open", "none":
		return Open, nil
	case "wep":
		return WEP, nil
	case "wpa":
		return WPA, nil
	case "wpa2":
		return WPA2, nil
	case "wpa3", "sae":
		return WPA3, nil
	default:
		return Open, errors.Errorf("unknown security %q: %w", s, ErrInvalidDescriptor)
	}
}

func (s Security) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Security) UnmarshalText(text []byte) error {
	parsed, err := ParseSecurity(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// Band is the frequency band a network operates on.
type Band int

const (
	BandAuto Band = iota
	Band2GHz
	Band5GHz
)

func (b Band) String() string {
	switch b {
	case Band2GHz:
		return "2.4GHz"
	case Band5GHz:
		return "5GHz"
	default:
		return "auto"
	}
}

// ParseBand is the inverse of Band.String.
func ParseBand(s string) (Band, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return BandAuto, nil
	case "2.4ghz", "2.4", "2ghz":
		return Band2GHz, nil
	case "5ghz", "5":
		return Band5GHz, nil
	default:
		return BandAuto, errors.Errorf("unknown band %q: %w", s, ErrInvalidDescriptor)
	}
}

func (b Band) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Band) UnmarshalText(text []byte) error {
	parsed, err := ParseBand(string(text))
	if err != nil {
		return err
	}

	*b = parsed

	return nil
}

// Descriptor describes a network to join or to host. It is passed by value
// and never modified once handed to the coordinator.
type Descriptor struct {
	Ssid     string   `json:"ssid"`
	Security Security `json:"security"`
	Key      string   `json:"key,omitempty"`
	Band     Band     `json:"band"`
	Hidden   bool     `json:"hidden,omitempty"`
}

// Validate checks that the descriptor is usable at all. It does not encode
// credentials, that is up to the radio driver.
func (d Descriptor) Validate() error {
	if len(d.Ssid) == 0 || len(d.Ssid) > 32 {
		return errors.Errorf("ssid must be 1 to 32 bytes, got %d: %w", len(d.Ssid), ErrInvalidDescriptor)
	}

	switch d.Security {
	case Open:
		if d.Key != "" {
			return errors.Errorf("open network %q must not carry a key: %w", d.Ssid, ErrInvalidDescriptor)
		}
	case WEP:
		switch {
		case len(d.Key) == 5 || len(d.Key) == 13:
		case (len(d.Key) == 10 || len(d.Key) == 26) && isHex(d.Key):
		default:
			return errors.Errorf("wep key for %q has invalid length %d: %w", d.Ssid, len(d.Key), ErrInvalidDescriptor)
		}
	case WPA, WPA2, WPA3:
		switch {
		case len(d.Key) >= 8 && len(d.Key) <= 63:
		case len(d.Key) == 64 && isHex(d.Key):
		default:
			return errors.Errorf("passphrase for %q must be 8 to 63 characters: %w", d.Ssid, ErrInvalidDescriptor)
		}
	default:
		return errors.Errorf("unknown security %d: %w", d.Security, ErrInvalidDescriptor)
	}

	if d.Band < BandAuto || d.Band > Band5GHz {
		return errors.Errorf("unknown band %d: %w", d.Band, ErrInvalidDescriptor)
	}

	return nil
}

// Redacted returns a copy of the descriptor without key material, suitable
// for logging.
func (d Descriptor) Redacted() Descriptor {
	if d.Key != "" {
		d.Key = "********"
	}

	return d
}

func (d Descriptor) String() string {
	return d.Ssid + " (" + d.Security.String() + ", " + d.Band.String() + ")"
}

func isHex(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil
}

// ScanResult is a single network seen during a scan.
type ScanResult struct {
	Ssid      string   `json:"ssid"`
	Bssid     string   `json:"bssid"`
	Signal    int      `json:"signal"`
	Security  Security `json:"security"`
	Frequency int      `json:"frequency"`
}

// Client is a station attached to the hosted access point.
type Client struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// NormalizeAddress returns the canonical lower case, colon separated form of
// a link layer address.
func NormalizeAddress(addr string) (string, error) {
	hw, err := net.ParseMAC(addr)
	if err != nil {
		return "", errors.Errorf("could not parse address %q: %v", addr, err)
	}

	return hw.String(), nil
}

// Handler receives state reports from a Radio. Calls may arrive on any
// goroutine, including the one that issued the request.
type Handler interface {
	HandleModuleState(ModuleState)
	HandleApState(ApState)
	HandleNetState(NetState)
	HandleScanResults([]ScanResult)
	HandleClientsChanged()
}

// Radio is the narrow driver interface the coordinator relies on. All
// requests return once they are handed off, completion is reported through
// the Handler passed to Start.
type Radio interface {
	// Start begins delivering reports to h, starting with the current states.
	Start(h Handler) error
	Stop() error
	SetModuleEnabled(ctx context.Context, enabled bool) error
	Scan(ctx context.Context) error
	Connect(ctx context.Context, d Descriptor) error
	Disconnect(ctx context.Context) error
	StartAccessPoint(ctx context.Context, d Descriptor) error
	StopAccessPoint(ctx context.Context) error
	ConnectedClients(ctx context.Context) ([]Client, error)
}
