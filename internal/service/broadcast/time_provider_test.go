package broadcast_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/localboost/localboost/internal/service/broadcast"
)

func TestRealTimeProvider(t *testing.T) {
	t.Run("Now returns current time in UTC", func(t *testing.T) {
		provider := broadcast.NewRealTimeProvider()
		beforeTest := time.Now()

		result := provider.Now()

		afterTest := time.Now()
		assert.Equal(t, time.UTC, result.Location())
		assert.False(t, result.Before(beforeTest.Truncate(time.Nanosecond)))
		assert.False(t, result.After(afterTest))
	})

	t.Run("Since returns correct duration", func(t *testing.T) {
		provider := broadcast.NewRealTimeProvider()
		startTime := time.Now().Add(-100 * time.Millisecond)

		duration := provider.Since(startTime)

		assert.True(t, duration >= 100*time.Millisecond)
		assert.True(t, duration < time.Second)
	})
}

func TestFixedTimeProvider(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	provider := broadcast.NewFixedTimeProvider(start)

	assert.Equal(t, start, provider.Now())
	assert.Equal(t, start, provider.Now(), "time does not move on its own")

	provider.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), provider.Now())
	assert.Equal(t, 90*time.Minute, provider.Since(start))
}
