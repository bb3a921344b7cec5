package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// CoreRange is a parsed core-affinity spec: either every CPU or an inclusive
// [Start, End] range of logical CPU IDs.
type CoreRange struct {
	All   bool
	Start int
	End   int
}

// ParseCoreRange accepts "all", "N" and "start-end".
func ParseCoreRange(spec string) (CoreRange, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, "all") {
		return CoreRange{All: true}, nil
	}

	if !strings.Contains(spec, "-") {
		cpu, err := strconv.Atoi(spec)
		if err != nil || cpu < 0 {
			return CoreRange{}, fmt.Errorf("invalid CPU number: %s", spec)
		}
		return CoreRange{Start: cpu, End: cpu}, nil
	}

	rangeParts := strings.Split(spec, "-")
	if len(rangeParts) != 2 {
		return CoreRange{}, fmt.Errorf("invalid CPU range: %s", spec)
	}

	start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
	if err != nil || start < 0 {
		return CoreRange{}, fmt.Errorf("invalid CPU range start: %s", rangeParts[0])
	}

	end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
	if err != nil || end < 0 {
		return CoreRange{}, fmt.Errorf("invalid CPU range end: %s", rangeParts[1])
	}

	if start > end {
		return CoreRange{}, fmt.Errorf("invalid CPU range: start > end (%d > %d)", start, end)
	}

	return CoreRange{Start: start, End: end}, nil
}

// String renders the range in taskset -c form.
func (r CoreRange) String() string {
	if r.All {
		return "all"
	}
	if r.Start == r.End {
		return strconv.Itoa(r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// CPUs lists the logical CPU IDs covered by a bounded range; nil for All.
func (r CoreRange) CPUs() []int {
	if r.All {
		return nil
	}
	return lo.RangeFrom(r.Start, r.End-r.Start+1)
}
