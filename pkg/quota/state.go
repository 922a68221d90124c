// Package quota implements daily call budget tracking and request gating
// for the catalog gateway. The gateway enforces a per-key daily call
// ceiling; exceeding it blocks the key for the rest of the window. The
// tracker shares consumption state across client instances via Redis so a
// fleet of clients drains one budget coherently.
package quota

import (
	"time"
)

// Redis keys for shared quota state.
const (
	RedisKeyCallsUsed   = "catalog:quota:calls_used"
	RedisKeyWindowReset = "catalog:quota:window_reset"
	RedisKeyLastUpdate  = "catalog:quota:last_update"
)

// DefaultDailyBudget is the gateway's documented per-key daily call ceiling.
const DefaultDailyBudget = 3000

// Thresholds for gating decisions, expressed in calls remaining.
const (
	// BudgetThresholdCritical blocks all requests when calls remaining
	// falls below this value, keeping a reserve for manual diagnostics.
	BudgetThresholdCritical = 10

	// BudgetThresholdWarning applies throttling when calls remaining
	// falls below this value.
	BudgetThresholdWarning = 100

	// BudgetThresholdHealthy indicates normal operation.
	BudgetThresholdHealthy = 500
)

// State is the shared view of the current daily quota window.
type State struct {
	// CallsUsed is the number of calls issued in the current window by
	// all client instances sharing this Redis.
	CallsUsed int `json:"calls_used"`

	// CallsRemaining is the daily budget minus CallsUsed, floored at zero.
	CallsRemaining int `json:"calls_remaining"`

	// ResetAt is when the current window expires and the budget refills.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was last written. Used to detect
	// stale data.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true while CallsRemaining >= BudgetThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state is older than maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should be blocked outright.
func (s *State) NeedsCriticalBlock() bool {
	return s.CallsRemaining < BudgetThresholdCritical
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *State) NeedsThrottling() bool {
	return s.CallsRemaining < BudgetThresholdWarning && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the window refills, or 0 if
// the reset time has already passed.
func (s *State) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth recomputes the IsHealthy field from CallsRemaining.
func (s *State) UpdateHealth() {
	s.IsHealthy = s.CallsRemaining >= BudgetThresholdHealthy
}
