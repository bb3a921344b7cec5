package workload

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"cpu-verify/internal/process"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pidLauncher records the pid of every process the real launcher starts.
type pidLauncher struct {
	process.ExecLauncher

	mu   sync.Mutex
	pids []int
}

func (l *pidLauncher) Start(ctx context.Context, spec process.Spec) (process.Process, error) {
	proc, err := l.ExecLauncher.Start(ctx, spec)
	if err == nil {
		l.mu.Lock()
		l.pids = append(l.pids, proc.Pid())
		l.mu.Unlock()
	}
	return proc, err
}

func (l *pidLauncher) started() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int(nil), l.pids...)
}

// childrenOf lists the live processes whose parent is one of parents.
func childrenOf(parents []int) []int {
	want := make(map[int]bool, len(parents))
	for _, p := range parents {
		want[p] = true
	}
	stats, _ := filepath.Glob("/proc/[0-9]*/stat")
	var out []int
	for _, path := range stats {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		text := string(data)
		fields := strings.Fields(text[strings.LastIndexByte(text, ')')+1:])
		if len(fields) < 2 {
			continue
		}
		ppid, _ := strconv.Atoi(fields[1])
		if want[ppid] {
			pid, _ := strconv.Atoi(filepath.Base(filepath.Dir(path)))
			out = append(out, pid)
		}
	}
	return out
}

func alive(pid int) bool {
	data, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return false
	}
	text := string(data)
	fields := strings.Fields(text[strings.LastIndexByte(text, ')')+1:])
	return len(fields) > 0 && fields[0] != "Z"
}

func TestSoak_CancelStopsLoopsWithTheirWrapper(t *testing.T) {
	if _, err := os.Stat("/proc/self/stat"); err != nil {
		t.Skip("needs /proc")
	}
	launcher := &pidLauncher{}
	for _, bin := range []string{"timeout", "yes"} {
		if _, err := launcher.LookPath(bin); err != nil {
			t.Skipf("%s not available", bin)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	soak := NewSoak(Env{Launcher: launcher, Duration: 30, CPUs: 2})
	done := make(chan Result, 1)
	go func() { done <- soak.Run(ctx) }()

	var loops []int
	require.Eventually(t, func() bool {
		loops = childrenOf(launcher.started())
		return len(launcher.started()) == 2 && len(loops) == 2
	}, 5*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case res := <-done:
		assert.Equal(t, Success, res.Outcome)
	case <-time.After(process.StopGrace + 5*time.Second):
		t.Fatal("soak did not return after cancellation")
	}

	for _, pid := range loops {
		assert.Eventually(t, func() bool { return !alive(pid) }, 2*time.Second, 20*time.Millisecond, "yes loop %d outlived the run", pid)
	}
}
