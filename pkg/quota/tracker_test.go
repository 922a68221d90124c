package quota

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// setupTestRedis creates a test Redis client, skipping when Redis is not
// reachable locally. Container-backed coverage lives in the integration
// build.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewTracker_BudgetFallback(t *testing.T) {
	tracker := NewTracker(nil, 0, zerolog.Nop())
	if tracker.budget != DefaultDailyBudget {
		t.Errorf("budget = %d, want %d", tracker.budget, DefaultDailyBudget)
	}

	tracker = NewTracker(nil, 100, zerolog.Nop())
	if tracker.budget != 100 {
		t.Errorf("budget = %d, want 100", tracker.budget)
	}
}

func TestTracker_GetState_EmptyRedis(t *testing.T) {
	redisClient := setupTestRedis(t)
	tracker := NewTracker(redisClient, 3000, zerolog.Nop())

	state, err := tracker.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}

	if state.CallsUsed != 0 {
		t.Errorf("CallsUsed = %d, want 0", state.CallsUsed)
	}
	if state.CallsRemaining != 3000 {
		t.Errorf("CallsRemaining = %d, want 3000", state.CallsRemaining)
	}
	if !state.IsHealthy {
		t.Error("expected full budget to be healthy")
	}
}

func TestTracker_RecordCall_AdvancesCounter(t *testing.T) {
	redisClient := setupTestRedis(t)
	tracker := NewTracker(redisClient, 3000, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := tracker.RecordCall(ctx); err != nil {
			t.Fatalf("RecordCall() error = %v", err)
		}
	}

	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}

	if state.CallsUsed != 3 {
		t.Errorf("CallsUsed = %d, want 3", state.CallsUsed)
	}
	if state.CallsRemaining != 2997 {
		t.Errorf("CallsRemaining = %d, want 2997", state.CallsRemaining)
	}
}

func TestTracker_ShouldAllowRequest(t *testing.T) {
	tests := []struct {
		name      string
		budget    int
		callsUsed int
		expected  bool
	}{
		{
			name:      "healthy budget allows",
			budget:    3000,
			callsUsed: 10,
			expected:  true,
		},
		{
			name:      "critical budget blocks",
			budget:    100,
			callsUsed: 95,
			expected:  false,
		},
		{
			name:      "exhausted budget blocks",
			budget:    100,
			callsUsed: 100,
			expected:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			redisClient := setupTestRedis(t)
			tracker := NewTracker(redisClient, tt.budget, zerolog.Nop())
			ctx := context.Background()

			for i := 0; i < tt.callsUsed; i++ {
				if err := tracker.RecordCall(ctx); err != nil {
					t.Fatalf("RecordCall() error = %v", err)
				}
			}

			allowed, err := tracker.ShouldAllowRequest(ctx)
			if err != nil {
				t.Fatalf("ShouldAllowRequest() error = %v", err)
			}
			if allowed != tt.expected {
				t.Errorf("ShouldAllowRequest() = %v, want %v", allowed, tt.expected)
			}
		})
	}
}

func TestTracker_RemainingNeverNegative(t *testing.T) {
	redisClient := setupTestRedis(t)
	tracker := NewTracker(redisClient, 2, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := tracker.RecordCall(ctx); err != nil {
			t.Fatalf("RecordCall() error = %v", err)
		}
	}

	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.CallsRemaining != 0 {
		t.Errorf("CallsRemaining = %d, want 0", state.CallsRemaining)
	}
}
