package erp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffTrackerNoDelayInitially(t *testing.T) {
	tracker := NewBackoffTracker(time.Second, time.Minute)
	assert.Zero(t, tracker.Delay(EndpointInventory))
}

func TestBackoffTrackerDoublesPerFailure(t *testing.T) {
	tracker := NewBackoffTracker(time.Second, time.Minute)

	// Jitter is +/-30%, so assert against the jittered bounds
	expected := time.Second
	for i := 0; i < 4; i++ {
		tracker.RecordFailure(EndpointInventory)
		delay := tracker.Delay(EndpointInventory)
		assert.GreaterOrEqual(t, delay, time.Duration(float64(expected)*0.7),
			"failure %d: delay below jitter floor", i+1)
		assert.LessOrEqual(t, delay, time.Duration(float64(expected)*1.3),
			"failure %d: delay above jitter ceiling", i+1)
		expected *= 2
	}
}

func TestBackoffTrackerCapsAtMax(t *testing.T) {
	tracker := NewBackoffTracker(time.Second, 4*time.Second)

	for i := 0; i < 10; i++ {
		tracker.RecordFailure(EndpointInventory)
	}

	delay := tracker.Delay(EndpointInventory)
	assert.LessOrEqual(t, delay, time.Duration(float64(4*time.Second)*1.3))
}

func TestBackoffTrackerSuccessResets(t *testing.T) {
	tracker := NewBackoffTracker(time.Second, time.Minute)

	tracker.RecordFailure(EndpointInventory)
	tracker.RecordFailure(EndpointInventory)
	assert.NotZero(t, tracker.Delay(EndpointInventory))

	tracker.RecordSuccess(EndpointInventory)
	assert.Zero(t, tracker.Delay(EndpointInventory))
}

func TestBackoffTrackerPerEndpointIsolation(t *testing.T) {
	tracker := NewBackoffTracker(time.Second, time.Minute)

	tracker.RecordFailure(EndpointInventory)
	assert.NotZero(t, tracker.Delay(EndpointInventory))
	assert.Zero(t, tracker.Delay(EndpointSaveOrder))
	assert.Zero(t, tracker.Delay(EndpointLogin))
}

func TestBackoffTrackerSetDelay(t *testing.T) {
	tracker := NewBackoffTracker(time.Second, 10*time.Minute)

	tracker.SetDelay(EndpointLogin, 5*time.Minute)
	delay := tracker.Delay(EndpointLogin)
	assert.GreaterOrEqual(t, delay, time.Duration(float64(5*time.Minute)*0.7))
	assert.LessOrEqual(t, delay, time.Duration(float64(5*time.Minute)*1.3))

	// Override above the cap is clamped
	tracker.SetDelay(EndpointLogin, time.Hour)
	snapshot := tracker.Snapshot()
	assert.Equal(t, 10*time.Minute, snapshot[EndpointLogin])
}
