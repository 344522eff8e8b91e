package wifidb

import (
	"time"

	"github.com/go-errors/errors"
	"github.com/the-lightning-land/wifid/coordinator"
)

// AutoScan is the persisted auto scan preference.
type AutoScan struct {
	Enabled  bool          `json:"enabled"`
	Interval time.Duration `json:"interval"`
}

// SetLastConfiguration stores the most recently confirmed configuration.
// Passing nil forgets it.
func (db *DB) SetLastConfiguration(config *coordinator.Configuration) error {
	err := db.setJSON(settingsBucket, lastConfigurationKey, config)
	if err != nil {
		return errors.Errorf("could not save last configuration: %v", err)
	}

	return nil
}

// GetLastConfiguration returns nil if no configuration was saved yet.
func (db *DB) GetLastConfiguration() (*coordinator.Configuration, error) {
	config := &coordinator.Configuration{}

	found, err := db.getJSON(settingsBucket, lastConfigurationKey, config)
	if err != nil {
		return nil, errors.Errorf("could not get last configuration: %v", err)
	}

	if !found {
		return nil, nil
	}

	return config, nil
}

func (db *DB) SetAutoScan(autoScan *AutoScan) error {
	err := db.setJSON(settingsBucket, autoScanKey, autoScan)
	if err != nil {
		return errors.Errorf("could not save auto scan: %v", err)
	}

	return nil
}

// GetAutoScan returns nil if auto scan was never configured.
func (db *DB) GetAutoScan() (*AutoScan, error) {
	autoScan := &AutoScan{}

	found, err := db.getJSON(settingsBucket, autoScanKey, autoScan)
	if err != nil {
		return nil, errors.Errorf("could not get auto scan: %v", err)
	}

	if !found {
		return nil, nil
	}

	return autoScan, nil
}
