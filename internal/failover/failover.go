// Package failover implements the Failover Orchestrator: an ordered
// attempt sequence over a primary backend and its configured failover
// list, a cooldown state machine for the "daily limit" error, and a fixed
// backoff schedule between retry cycles.
package failover

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/llmgateway/llmgateway/internal/apperror"
	"github.com/llmgateway/llmgateway/internal/upstream"
)

// backoffScheduleSeconds is the fixed per-cycle backoff (§4.6, §5). It
// saturates at its last value for any cycle beyond its length — this is
// deliberately NOT the teacher's exponential-with-jitter retry formula:
// the spec calls for a fixed table, not a multiplier.
var backoffScheduleSeconds = []int{2, 4, 8, 15, 15, 30, 30, 60}

// maxCycles is the hard cap on retry cycles before AllBackendsFailed (§4.6).
const maxCycles = 10

// dayLimitSubstring is matched case-insensitively against a primary
// backend's error message to trigger the cooldown.
const dayLimitSubstring = "day limit exceeded"

// cooldownDuration is how long the primary is skipped once day-limited.
const cooldownDuration = 300 * time.Second

// RuntimeState holds the single piece of mutable state the Orchestrator
// shares across requests: the primary's cooldown expiry. It is safe for
// concurrent use; cooldown activation is monotonic (only ever moves
// forward), so racing requests that both observe an expired cooldown and
// both attempt the primary are acceptable (§5).
type RuntimeState struct {
	primaryCooldownUntil atomic.Int64 // unix seconds; 0 ⇒ no cooldown
}

// NewRuntimeState returns a RuntimeState with no active cooldown.
func NewRuntimeState() *RuntimeState {
	return &RuntimeState{}
}

// PrimaryInCooldown reports whether the primary should be skipped right now.
func (s *RuntimeState) PrimaryInCooldown(now time.Time) bool {
	until := s.primaryCooldownUntil.Load()
	return until != 0 && now.Unix() < until
}

// activateCooldown advances the cooldown to now+cooldownDuration. A
// concurrent call that would move the cooldown backward is a no-op: the
// spec requires monotonic advancement, not "last write wins".
func (s *RuntimeState) activateCooldown(now time.Time) {
	newUntil := now.Add(cooldownDuration).Unix()
	for {
		current := s.primaryCooldownUntil.Load()
		if current >= newUntil {
			return
		}
		if s.primaryCooldownUntil.CompareAndSwap(current, newUntil) {
			return
		}
	}
}

// Attempt is one backend the Orchestrator may dispatch to, identified by
// its catalog model string and passed in by value so the caller's
// selection is never shared/mutated state (§5 critical shared-state
// contract).
type Attempt struct {
	Model     string
	IsPrimary bool
	Dispatch  func(ctx context.Context) (any, error)
}

// FailoverEvent is logged on every non-terminal error while advancing
// through a cycle's attempt list.
type FailoverEvent struct {
	Cycle         int
	ErrorCode     string
	OriginalModel string
	Candidate     string
	TokenCount    int
}

// Orchestrator runs the attempt-cycle state machine described in §4.6
// over a caller-supplied list of attempts (by value: primary plus
// whatever failover backends the caller resolved for this request).
type Orchestrator struct {
	State   *RuntimeState
	OnEvent func(FailoverEvent)
	Sleep   func(ctx context.Context, d time.Duration) error
	Now     func() time.Time
}

// NewOrchestrator returns an Orchestrator wired to state, with real
// sleeping/clock functions. Tests may override Sleep/Now for determinism.
func NewOrchestrator(state *RuntimeState) *Orchestrator {
	return &Orchestrator{
		State: state,
		Sleep: ctxSleep,
		Now:   time.Now,
	}
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes the attempt-cycle state machine. primary and failover are
// the attempts for this single request; failover may be empty, in which
// case failover is inactive: the primary is tried exactly once and its
// error, if any, is returned unchanged. tokenCount is the request's
// estimated token count, carried into each logged FailoverEvent per §4.6.
func (o *Orchestrator) Run(ctx context.Context, primary Attempt, failoverAttempts []Attempt, tokenCount int) (any, string, error) {
	if len(failoverAttempts) == 0 {
		result, err := primary.Dispatch(ctx)
		if err != nil {
			return nil, "", err
		}
		return result, primary.Model, nil
	}

	var lastErr error
	var attempted []string

	for cycle := 0; cycle < maxCycles; cycle++ {
		now := o.Now()
		attemptList := o.buildAttemptList(primary, failoverAttempts, now)

		for _, attempt := range attemptList {
			attempted = append(attempted, attempt.Model)
			result, err := attempt.Dispatch(ctx)
			if err == nil {
				return result, attempt.Model, nil
			}
			lastErr = err

			if attempt.IsPrimary && isDayLimitError(err) {
				o.State.activateCooldown(o.Now())
				break
			}

			if o.OnEvent != nil {
				o.OnEvent(FailoverEvent{
					Cycle:         cycle,
					ErrorCode:     errorCode(err),
					OriginalModel: primary.Model,
					Candidate:     attempt.Model,
					TokenCount:    tokenCount,
				})
			}
		}

		if cycle == maxCycles-1 {
			break
		}

		sleepFor := time.Duration(backoffScheduleSeconds[minInt(cycle, len(backoffScheduleSeconds)-1)]) * time.Second
		if err := o.Sleep(ctx, sleepFor); err != nil {
			return nil, "", apperror.NewClientDisconnectedError(err)
		}
	}

	return nil, "", apperror.NewAllBackendsFailedError(attempted, lastErr)
}

// buildAttemptList returns [primary, ...failover] for this cycle, omitting
// the primary if it is currently in cooldown.
func (o *Orchestrator) buildAttemptList(primary Attempt, failoverAttempts []Attempt, now time.Time) []Attempt {
	if o.State.PrimaryInCooldown(now) {
		return failoverAttempts
	}
	return append([]Attempt{primary}, failoverAttempts...)
}

func isDayLimitError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), dayLimitSubstring)
}

func errorCode(err error) string {
	return upstream.ClassifyErrorCode(err)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
