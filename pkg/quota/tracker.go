package quota

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for quota tracking.
var (
	catalogCallsRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_quota_calls_remaining",
		Help: "Number of calls remaining in the current daily quota window",
	})

	catalogQuotaBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_quota_blocks_total",
		Help: "Total number of requests blocked due to critical quota level",
	})

	catalogQuotaThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_quota_throttles_total",
		Help: "Total number of requests throttled due to warning quota level",
	})
)

// WindowDuration is the length of one quota window.
const WindowDuration = 24 * time.Hour

// Tracker monitors daily call consumption and gates outgoing requests.
type Tracker struct {
	redis  *redis.Client
	budget int
	logger zerolog.Logger
}

// NewTracker creates a quota tracker with the given daily budget. A budget
// of 0 falls back to DefaultDailyBudget.
func NewTracker(redisClient *redis.Client, budget int, logger zerolog.Logger) *Tracker {
	if budget <= 0 {
		budget = DefaultDailyBudget
	}
	return &Tracker{
		redis:  redisClient,
		budget: budget,
		logger: logger,
	}
}

// GetState retrieves the current quota state from Redis. When no window is
// open yet it returns a full, healthy budget.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	used, err := t.redis.Get(ctx, RedisKeyCallsUsed).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get calls used: %w", err)
	}

	resetTimestamp, err := t.redis.Get(ctx, RedisKeyWindowReset).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get window reset: %w", err)
	}

	lastUpdateStr, err := t.redis.Get(ctx, RedisKeyLastUpdate).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	// No window open: full budget.
	if err == redis.Nil {
		t.logger.Debug().Msg("No quota state in Redis, assuming full budget")
		state := &State{
			CallsUsed:      0,
			CallsRemaining: t.budget,
			ResetAt:        time.Now().Add(WindowDuration),
			LastUpdate:     time.Now(),
		}
		state.UpdateHealth()
		return state, nil
	}

	var lastUpdate time.Time
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	remaining := t.budget - used
	if remaining < 0 {
		remaining = 0
	}

	state := &State{
		CallsUsed:      used,
		CallsRemaining: remaining,
		ResetAt:        time.Unix(resetTimestamp, 0),
		LastUpdate:     lastUpdate,
	}
	state.UpdateHealth()

	return state, nil
}

// RecordCall advances the shared consumption counter after one outbound
// request. The first call of a window opens it and sets the expiry.
func (t *Tracker) RecordCall(ctx context.Context) error {
	used, err := t.redis.Incr(ctx, RedisKeyCallsUsed).Result()
	if err != nil {
		return fmt.Errorf("increment calls used: %w", err)
	}

	now := time.Now()

	if used == 1 {
		// New window: pin the reset time and expire all keys with it.
		resetAt := now.Add(WindowDuration)
		pipe := t.redis.Pipeline()
		pipe.Set(ctx, RedisKeyWindowReset, resetAt.Unix(), WindowDuration)
		pipe.Expire(ctx, RedisKeyCallsUsed, WindowDuration)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("open quota window: %w", err)
		}
	}

	lastUpdateJSON, err := json.Marshal(now)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}
	if err := t.redis.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, WindowDuration).Err(); err != nil {
		return fmt.Errorf("store last update: %w", err)
	}

	remaining := t.budget - int(used)
	if remaining < 0 {
		remaining = 0
	}
	catalogCallsRemaining.Set(float64(remaining))

	switch {
	case remaining < BudgetThresholdCritical:
		t.logger.Error().
			Int64("calls_used", used).
			Int("calls_remaining", remaining).
			Msg("Daily call budget CRITICAL - requests will be blocked")
	case remaining < BudgetThresholdWarning:
		t.logger.Warn().
			Int64("calls_used", used).
			Int("calls_remaining", remaining).
			Msg("Daily call budget WARNING - requests will be throttled")
	default:
		t.logger.Debug().
			Int64("calls_used", used).
			Int("calls_remaining", remaining).
			Msg("Quota state updated")
	}

	return nil
}

// ShouldAllowRequest checks if a request may be issued under the current
// quota state. Returns false when the budget is critically low. In the
// warning band the request is allowed but delayed.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get quota state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("calls_remaining", state.CallsRemaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Daily call budget critical - blocking request")

		catalogQuotaBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("calls_remaining", state.CallsRemaining).
			Msg("Daily call budget warning - throttling request")

		catalogQuotaThrottlesTotal.Inc()
		time.Sleep(1 * time.Second)
	}

	return true, nil
}
