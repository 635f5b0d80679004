package clock_test

import (
	"testing"
	"time"

	"github.com/alejandrodnm/streakbot/internal/clock"
	"github.com/alejandrodnm/streakbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fifteen(t *testing.T) clock.Interval {
	t.Helper()
	iv, err := clock.NewInterval(15)
	require.NoError(t, err)
	return iv
}

func TestNewInterval_RejectsNonPositive(t *testing.T) {
	_, err := clock.NewInterval(0)
	assert.Error(t, err)
	_, err = clock.NewInterval(-5)
	assert.Error(t, err)
}

func TestIsDecisionTick(t *testing.T) {
	iv := fifteen(t)
	tests := []struct {
		at   time.Time
		want bool
	}{
		{time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), true},
		{time.Date(2024, 3, 1, 10, 15, 59, 0, time.UTC), true},
		{time.Date(2024, 3, 1, 10, 30, 12, 0, time.UTC), true},
		{time.Date(2024, 3, 1, 10, 16, 0, 0, time.UTC), false},
		{time.Date(2024, 3, 1, 10, 44, 59, 0, time.UTC), false},
		{time.Date(2024, 3, 1, 23, 45, 30, 0, time.UTC), true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, iv.IsDecisionTick(tt.at), tt.at.Format(time.RFC3339))
	}
}

func TestIsDecisionTick_IgnoresTimezone(t *testing.T) {
	iv := fifteen(t)
	// UTC+5:30 desplaza el minuto de reloj local, no el epoch
	ist := time.FixedZone("IST", 5*3600+30*60)
	at := time.Date(2024, 3, 1, 15, 30, 0, 0, ist) // 10:00 UTC
	assert.True(t, iv.IsDecisionTick(at))
}

func TestBucketFor(t *testing.T) {
	iv := fifteen(t)
	now := time.Date(2024, 3, 1, 10, 7, 42, 0, time.UTC)

	cur := iv.BucketFor(now, 0)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), cur.Start())
	assert.Equal(t, cur-900, iv.BucketFor(now, 1))
	assert.Equal(t, cur-1800, iv.BucketFor(now, 2))
}

func TestBucketFor_AcrossDayBoundary(t *testing.T) {
	iv := fifteen(t)
	now := time.Date(2024, 3, 1, 0, 0, 5, 0, time.UTC)

	prev := iv.BucketFor(now, 1)
	assert.Equal(t, time.Date(2024, 2, 29, 23, 45, 0, 0, time.UTC), prev.Start())
	assert.Equal(t, domain.Bucket(now.Unix()-5-900), prev)
}

func TestNext(t *testing.T) {
	iv := fifteen(t)
	now := time.Date(2024, 3, 1, 10, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC), iv.Next(now))
}

func TestFixedClock(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	var c clock.Clock = clock.Fixed(at)
	assert.Equal(t, at, c.Now())
}
