package collectors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCycleReadingScaled(t *testing.T) {
	full := CycleReading{Value: 1000, Enabled: time.Second, Running: time.Second}
	assert.Equal(t, 1000.0, full.Scaled())

	half := CycleReading{Value: 1000, Enabled: 2 * time.Second, Running: time.Second}
	assert.Equal(t, 2000.0, half.Scaled())

	never := CycleReading{Value: 0}
	assert.Equal(t, 0.0, never.Scaled())
}

func TestEffectiveMHz(t *testing.T) {
	readings := []CycleReading{
		{Value: 3_000_000_000, Enabled: time.Second, Running: time.Second},
		{Value: 1_000_000_000, Enabled: time.Second, Running: time.Second},
	}

	f := EffectiveMHz(readings, time.Second)
	assert.True(t, f.Available)
	assert.InDelta(t, 2000.0, f.MHz, 1e-6)
	assert.Equal(t, 2, f.CPUs)
	assert.Equal(t, "2000", f.String())
}

func TestEffectiveMHz_Unavailable(t *testing.T) {
	assert.False(t, EffectiveMHz(nil, time.Second).Available)
	assert.Equal(t, "N/A", EffectiveMHz([]CycleReading{{Value: 1}}, 0).String())

	var cc *CycleCounter
	assert.False(t, cc.Read().Available)
	cc.Close()
}
