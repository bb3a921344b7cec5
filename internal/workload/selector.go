package workload

import (
	"context"
	"sync"

	"cpu-verify/internal/config"
	"cpu-verify/internal/logging"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

type State int

const (
	NotStarted State = iota
	TryingPreferred
	TryingGeneric
	Soaking
	Completed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case TryingPreferred:
		return "trying_preferred"
	case TryingGeneric:
		return "trying_generic"
	case Soaking:
		return "soaking"
	case Completed:
		return "completed"
	}
	return "unknown"
}

// Status is the final verdict of a selector run.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// Completion is the terminal state of the selector.
type Completion struct {
	Status   Status `json:"status"`
	Tier     int    `json:"tier"`
	Strategy string `json:"strategy"`
	ExitCode int    `json:"exit_code"`
	Command  string `json:"command,omitempty"`
	// Transitions lists every state entered, in order.
	Transitions []State `json:"-"`
}

func stateForTier(tier int) State {
	switch tier {
	case 1:
		return TryingPreferred
	case 2:
		return TryingGeneric
	default:
		return Soaking
	}
}

// Selector walks the strategies in tier order until one succeeds. Each
// strategy is attempted at most once and the state only moves forward.
type Selector struct {
	strategies  []Strategy
	state       State
	transitions []State
	mutex       sync.Mutex
}

func NewSelector(strategies ...Strategy) *Selector {
	return &Selector{
		strategies:  strategies,
		state:       NotStarted,
		transitions: []State{NotStarted},
	}
}

// Tiers builds the standard fallback chain.
func Tiers(env Env, cfg config.RunConfig, opts PreferredOptions) (*PreferredTool, []Strategy) {
	preferred := NewPreferredTool(env, cfg, opts)
	return preferred, []Strategy{preferred, NewStressNG(env), NewSoak(env)}
}

func (s *Selector) State() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state
}

func (s *Selector) Transitions() []State {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]State(nil), s.transitions...)
}

func (s *Selector) enter(next State) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if next <= s.state {
		return
	}
	logging.GetLogger().WithFields(logrus.Fields{
		"from": s.state.String(),
		"to":   next.String(),
	}).Debug("Workload state transition")
	s.state = next
	s.transitions = append(s.transitions, next)
}

// Run drives the fallback chain to Completed. It must be called once.
func (s *Selector) Run(ctx context.Context) Completion {
	logger := logging.GetLogger()

	ordered := lo.Filter(s.strategies, func(st Strategy, _ int) bool { return st != nil })
	completion := Completion{Status: StatusFailed, ExitCode: -1}

	for _, strategy := range ordered {
		if ctx.Err() != nil {
			break
		}

		state := stateForTier(strategy.Tier())
		s.enter(state)

		res := strategy.Run(ctx)
		completion.Tier = strategy.Tier()
		completion.Strategy = strategy.Name()
		completion.Command = res.Command
		if res.Outcome != Skipped {
			completion.ExitCode = res.ExitCode
		}

		if ctx.Err() != nil {
			if state == Soaking {
				completion.Status = StatusDegraded
			}
			break
		}
		if res.Outcome == Success {
			completion.Status = StatusSuccess
			break
		}
	}

	if ctx.Err() != nil {
		logger.WithField("state", s.State().String()).Warn("Workload interrupted")
	}

	s.enter(Completed)
	completion.Transitions = s.Transitions()

	entry := logger.WithFields(logrus.Fields{
		"status":    string(completion.Status),
		"tier":      completion.Tier,
		"strategy":  completion.Strategy,
		"exit_code": completion.ExitCode,
	})
	if completion.Status == StatusSuccess {
		entry.Info("Workload completed")
	} else {
		entry.Warn("Workload completed with issues")
	}
	return completion
}
