package telemetry

import (
	"context"
	"testing"
	"time"

	"cpu-verify/internal/process/processtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplerStart_MissingTurbostat(t *testing.T) {
	launcher := processtest.NewLauncher()

	capture, err := NewSampler(launcher, 1).Start(context.Background(), 60, "/tmp/out.txt")
	require.NoError(t, err)
	assert.Nil(t, capture)
	assert.Empty(t, launcher.Started())
	assert.False(t, capture.Wait(context.Background(), time.Millisecond, 0))
	assert.Zero(t, capture.Pid())
}

func TestSamplerStart_Arguments(t *testing.T) {
	launcher := processtest.NewLauncher("turbostat")

	capture, err := NewSampler(launcher, 2).Start(context.Background(), 60, "/runs/t.txt")
	require.NoError(t, err)
	require.NotNil(t, capture)

	started := launcher.Started()
	require.Len(t, started, 1)
	assert.Equal(t, "/usr/bin/turbostat", started[0].Name)
	assert.Equal(t, []string{
		"--show", "Time_Of_Day_Seconds,Avg_MHz,Bzy_MHz",
		"--interval", "2",
		"--num_iterations", "30",
		"--out", "/runs/t.txt",
		"--quiet",
	}, started[0].Args)
	assert.True(t, capture.Wait(context.Background(), time.Second, time.Second))
}

func TestSamplerArgs_AtLeastOneIteration(t *testing.T) {
	args := NewSampler(processtest.NewLauncher(), 5).Args(2, "f")
	assert.Equal(t, "1", args[5])
}

func TestCaptureWait_BoundedWithoutKill(t *testing.T) {
	launcher := processtest.NewLauncher("turbostat")
	hold := make(chan struct{})
	launcher.Block["turbostat"] = hold
	defer close(hold)

	capture, err := NewSampler(launcher, 1).Start(context.Background(), 1, "out.txt")
	require.NoError(t, err)

	start := time.Now()
	assert.False(t, capture.Wait(context.Background(), 20*time.Millisecond, 20*time.Millisecond))
	assert.Less(t, time.Since(start), time.Second)
}

func TestCaptureWait_InterruptUsesShortBound(t *testing.T) {
	launcher := processtest.NewLauncher("turbostat")
	hold := make(chan struct{})
	launcher.Block["turbostat"] = hold
	defer close(hold)

	capture, err := NewSampler(launcher, 1).Start(context.Background(), 600, "out.txt")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	assert.False(t, capture.Wait(ctx, 10*time.Minute, 20*time.Millisecond))
	assert.Less(t, time.Since(start), 5*time.Second)
}
