// Package scan runs the recurring background scan.
package scan

import (
	"context"
	"sync"
	"time"

	"github.com/go-errors/errors"
)

// ErrInvalidInterval is returned for non-positive auto scan intervals.
var ErrInvalidInterval = errors.New("scan interval must be positive")

// ScanFunc triggers a single scan. Results are delivered elsewhere.
type ScanFunc func(ctx context.Context) error

type Config struct {
	Scan   ScanFunc
	Logger Logger
}

// lease is one running auto scan loop.
type lease struct {
	id       uint32
	interval time.Duration
	cancel   chan struct{}
	done     chan struct{}
}

// Scheduler holds at most one auto scan lease. Starting a new lease cancels
// the previous one. It does not queue or coalesce scans, overlapping scans
// are left to the radio.
type Scheduler struct {
	scan ScanFunc
	log  Logger

	mu     sync.Mutex
	lease  *lease
	nextID uint32
}

func New(config *Config) *Scheduler {
	s := &Scheduler{
		scan: config.Scan,
	}

	if config.Logger != nil {
		s.log = config.Logger
	} else {
		s.log = noopLogger{}
	}

	return s
}

// Start scans right away and then every interval until the lease is
// cancelled by Stop or by another Start.
func (s *Scheduler) Start(interval time.Duration) error {
	if interval <= 0 {
		return errors.Errorf("%v: %w", interval, ErrInvalidInterval)
	}

	l := &lease{
		interval: interval,
		cancel:   make(chan struct{}),
		done:     make(chan struct{}),
	}

	s.mu.Lock()
	previous := s.lease
	l.id = s.nextID
	s.nextID++
	s.lease = l
	s.mu.Unlock()

	if previous != nil {
		close(previous.cancel)
		s.log.Debugf("replaced auto scan lease %v", previous.id)
	}

	s.log.Infof("starting auto scan every %v", interval)

	go s.run(l)

	return nil
}

// Stop cancels the active lease, if any. It is safe to call repeatedly.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	l := s.lease
	s.lease = nil
	s.mu.Unlock()

	if l == nil {
		return
	}

	close(l.cancel)
	s.log.Infof("stopped auto scan")
}

// Close stops the active lease and waits for its loop to exit.
func (s *Scheduler) Close() {
	s.mu.Lock()
	l := s.lease
	s.mu.Unlock()

	s.Stop()

	if l != nil {
		<-l.done
	}
}

// Active reports whether an auto scan lease is running.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lease != nil
}

// Interval returns the interval of the active lease, or zero.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lease == nil {
		return 0
	}

	return s.lease.interval
}

func (s *Scheduler) current(l *lease) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lease == l
}

func (s *Scheduler) run(l *lease) {
	defer close(l.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-l.cancel:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		if !s.current(l) {
			return
		}

		if err := s.scan(ctx); err != nil {
			s.log.Debugf("auto scan failed: %v", err)
		}

		select {
		case <-l.cancel:
			return
		case <-ticker.C:
		}
	}
}
