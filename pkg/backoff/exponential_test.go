package backoff

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateRetryDelay(t *testing.T) {
	const baseDelayMs = 100
	baseRetryDelay := time.Duration(baseDelayMs) * time.Millisecond

	tests := []struct {
		name             string
		attempt          int
		expectedMinDelay time.Duration
		expectedMaxDelay time.Duration
		expectZero       bool // For cases where delay should strictly be zero
	}{
		{
			name:       "Attempt 0",
			attempt:    0,
			expectZero: true,
		},
		{
			name:       "Attempt 1",
			attempt:    1,
			expectZero: true,
		},
		{
			name:             "Attempt 2",
			attempt:          2,
			expectedMinDelay: time.Duration(math.Pow(2, float64(2-1)) * float64(baseRetryDelay) * 0.5),
			expectedMaxDelay: time.Duration(math.Pow(2, float64(2-1)) * float64(baseRetryDelay) * 1.5),
		},
		{
			name:             "Attempt 3",
			attempt:          3,
			expectedMinDelay: time.Duration(math.Pow(2, float64(3-1)) * float64(baseRetryDelay) * 0.5),
			expectedMaxDelay: time.Duration(math.Pow(2, float64(3-1)) * float64(baseRetryDelay) * 1.5),
		},
		{
			name:             "Attempt 5",
			attempt:          5,
			expectedMinDelay: time.Duration(math.Pow(2, float64(5-1)) * float64(baseRetryDelay) * 0.5),
			expectedMaxDelay: time.Duration(math.Pow(2, float64(5-1)) * float64(baseRetryDelay) * 1.5),
		},
		{
			name:       "Negative Attempt", // Should be treated as invalid
			attempt:    -1,
			expectZero: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delay := CalculateRetryDelay(tt.attempt, baseRetryDelay)

			if tt.expectZero {
				assert.Equal(t, time.Duration(0), delay, "Expected zero delay")
			} else {
				assert.True(t, delay >= tt.expectedMinDelay, "Delay %v should be >= %v", delay, tt.expectedMinDelay)
				assert.True(t, delay <= tt.expectedMaxDelay, "Delay %v should be <= %v", delay, tt.expectedMaxDelay)
				assert.True(t, delay >= 0, "Delay should never be negative")
			}
		})
	}
}

func TestCalculateRetryDelay_ZeroBase(t *testing.T) {
	assert.Equal(t, time.Duration(0), CalculateRetryDelay(3, 0))
}

func TestSleep_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	Sleep(ctx, 5*time.Second)
	assert.Less(t, time.Since(start), time.Second, "cancelled context should unblock Sleep immediately")
}

func TestSleep_ZeroDelay(t *testing.T) {
	start := time.Now()
	Sleep(context.Background(), 0)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}
