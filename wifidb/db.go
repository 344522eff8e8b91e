// Package wifidb persists the wireless configuration across restarts.
package wifidb

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-errors/errors"
	"go.etcd.io/bbolt"
)

const dbFilename = "wifid.db"

var (
	settingsBucket = []byte("settings")

	lastConfigurationKey = []byte("lastConfiguration")
	autoScanKey          = []byte("autoScan")
)

type Config struct {
	// Dir holds the database file. It is created if missing.
	Dir    string
	Logger Logger
}

type DB struct {
	*bbolt.DB
	log Logger
}

func Open(config *Config) (*DB, error) {
	if err := os.MkdirAll(config.Dir, 0700); err != nil {
		return nil, errors.Errorf("could not create data directory %v: %v", config.Dir, err)
	}

	path := filepath.Join(config.Dir, dbFilename)

	bdb, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: time.Second,
	})
	if err != nil {
		return nil, errors.Errorf("could not open %v: %v", path, err)
	}

	err = bdb.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(settingsBucket)
		return err
	})
	if err != nil {
		_ = bdb.Close()
		return nil, errors.Errorf("could not create buckets: %v", err)
	}

	db := &DB{
		DB: bdb,
	}

	if config.Logger != nil {
		db.log = config.Logger
	} else {
		db.log = noopLogger{}
	}

	db.log.Debugf("opened database at %v", path)

	return db, nil
}
