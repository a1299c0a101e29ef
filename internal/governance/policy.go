package governance

import (
	"sync/atomic"

	"github.com/triage-ai/toolgate/internal/ratelimit"
	"github.com/triage-ai/toolgate/internal/registry"
	"go.uber.org/zap"
)

// State holds the shared governance flags. It is injected into the policy
// rather than read from package globals so tests get fresh state per run.
// The kill switch is written by an administrative path outside this
// package and read lock-free on every evaluation.
type State struct {
	killSwitch atomic.Bool
}

// NewState creates governance state with the kill switch disengaged.
func NewState() *State {
	return &State{}
}

// SetKillSwitch engages or releases the global kill switch.
func (s *State) SetKillSwitch(on bool) {
	s.killSwitch.Store(on)
}

// KillSwitchActive reports the current kill-switch position.
func (s *State) KillSwitchActive() bool {
	return s.killSwitch.Load()
}

// CallerContext describes the caller for one evaluation.
type CallerContext struct {
	ClientID string
	ReadOnly bool
}

// Decision is the policy outcome for one request. It is embedded in the
// audit record, never persisted on its own.
type Decision struct {
	Allowed           bool
	Classification    registry.Classification
	Reason            string
	RetryAfterSeconds int // 0 unless rate-limited
}

// Policy combines the registry-derived descriptor, the rate limiter, and
// the kill switch into a single allow/deny decision.
type Policy struct {
	limiter *ratelimit.Limiter
	state   *State
	logger  *zap.Logger
}

// NewPolicy creates a Policy over the given limiter and shared state.
func NewPolicy(limiter *ratelimit.Limiter, state *State, logger *zap.Logger) *Policy {
	return &Policy{limiter: limiter, state: state, logger: logger}
}

// Evaluate decides whether one call may proceed. Checks run in a fixed
// order: kill switch, read-only enforcement, rate budget. The first two
// deny independent of any remaining budget, so a blocked write never
// consumes tokens.
func (p *Policy) Evaluate(d *registry.ToolDescriptor, caller CallerContext) Decision {
	class := d.Classification.Normalize()

	if p.state.KillSwitchActive() && d.SideEffect {
		p.logger.Warn("kill switch denied side-effecting tool",
			zap.String("tool_name", d.Name),
			zap.String("client_id", caller.ClientID),
		)
		return Decision{
			Allowed:        false,
			Classification: class,
			Reason:         "kill switch active: side-effecting tools disabled",
		}
	}

	if caller.ReadOnly && d.SideEffect {
		return Decision{
			Allowed:        false,
			Classification: class,
			Reason:         "write operation blocked in read-only mode",
		}
	}

	rl := p.limiter.TryConsume(class, 1)
	if !rl.Allowed {
		return Decision{
			Allowed:           false,
			Classification:    class,
			Reason:            "rate limit exceeded for tier " + string(class),
			RetryAfterSeconds: rl.RetryAfterSeconds,
		}
	}

	return Decision{Allowed: true, Classification: class}
}
