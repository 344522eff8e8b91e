package connectivity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/the-lightning-land/wifid/radio"
)

func TestUpdate(t *testing.T) {
	r := NewReporter(nil)
	assert.Equal(t, Offline, r.CurrentState())

	r.Update(radio.Connecting)
	assert.Equal(t, Offline, r.CurrentState())

	r.Update(radio.Connected)
	assert.Equal(t, Online, r.CurrentState())

	r.Update(radio.Suspended)
	assert.Equal(t, Offline, r.CurrentState())
}

func TestWaitForStateChange(t *testing.T) {
	r := NewReporter(nil)

	done := make(chan bool)
	go func() {
		done <- r.WaitForStateChange(context.Background(), Offline)
	}()

	r.Update(radio.Disconnected)
	r.Update(radio.Connected)

	select {
	case changed := <-done:
		assert.True(t, changed)
	case <-time.After(time.Second):
		t.Fatal("wait did not return")
	}

	// state already differs
	assert.True(t, r.WaitForStateChange(context.Background(), Offline))
}

func TestWaitForStateChangeTimesOut(t *testing.T) {
	r := NewReporter(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.False(t, r.WaitForStateChange(ctx, Offline))
}
