package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowAverageAndMax(t *testing.T) {
	var w window
	w.record(10 * time.Millisecond)
	w.record(20 * time.Millisecond)
	w.record(30 * time.Millisecond)

	assert.Equal(t, 20*time.Millisecond, w.average())
	assert.Equal(t, 30*time.Millisecond, w.max)
}

func TestWindowRollsOffOldestSample(t *testing.T) {
	var w window
	for i := 0; i < windowSize; i++ {
		w.record(10 * time.Millisecond)
	}
	assert.Equal(t, 10*time.Millisecond, w.average())

	w.record(100 * time.Millisecond)
	assert.Equal(t, windowSize, w.count)
	assert.Equal(t, 100*time.Millisecond, w.max)

	want := (10*time.Millisecond*time.Duration(windowSize-1) + 100*time.Millisecond) / time.Duration(windowSize)
	assert.Equal(t, want, w.average())
}

func TestWindowEmptyAverageIsZero(t *testing.T) {
	var w window
	assert.Equal(t, time.Duration(0), w.average())
}
