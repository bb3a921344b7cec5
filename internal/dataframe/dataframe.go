package dataframe

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Point is one aggregated telemetry reading.
type Point struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// Series holds at most one point per timestamp, ascending.
type Series []Point

func (s Series) Len() int { return len(s) }

func (s Series) Empty() bool { return len(s) == 0 }

// Values returns the point values in order.
func (s Series) Values() []float64 {
	return lo.Map(s, func(p Point, _ int) float64 { return p.Value })
}

// Mean of all point values, 0 when empty.
func (s Series) Mean() float64 {
	if len(s) == 0 {
		return 0
	}
	return lo.Sum(s.Values()) / float64(len(s))
}

// Frame accumulates raw readings keyed by timestamp. Readings may arrive in
// any order and several may share a timestamp.
type Frame struct {
	steps map[int64]*step
	mutex sync.RWMutex
}

type step struct {
	sum   float64
	count int
}

func NewFrame() *Frame {
	return &Frame{
		steps: make(map[int64]*step),
	}
}

func (f *Frame) Add(timestamp int64, value float64) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if existing, exists := f.steps[timestamp]; exists {
		existing.sum += value
		existing.count++
		return
	}
	f.steps[timestamp] = &step{sum: value, count: 1}
}

// Readings counts every raw reading added so far.
func (f *Frame) Readings() int {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	total := 0
	for _, s := range f.steps {
		total += s.count
	}
	return total
}

// Series collapses the frame to the mean per timestamp, ascending.
func (f *Frame) Series() Series {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	if len(f.steps) == 0 {
		return Series{}
	}

	timestamps := lo.Keys(f.steps)
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })

	out := make(Series, 0, len(timestamps))
	for _, ts := range timestamps {
		s := f.steps[ts]
		out = append(out, Point{Timestamp: ts, Value: s.sum / float64(s.count)})
	}
	return out
}
