package srs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDifficulty(t *testing.T) {
	for _, valid := range []string{"hard", "good", "easy", "reset"} {
		d, err := ParseDifficulty(valid)
		require.NoError(t, err)
		assert.Equal(t, Difficulty(valid), d)
	}

	_, err := ParseDifficulty("medium")
	assert.Error(t, err)

	_, err = ParseDifficulty("")
	assert.Error(t, err)
}

func TestComputeNextInterval_Table(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		ease         float64
		interval     int
		difficulty   Difficulty
		wantInterval int
		wantEase     float64
	}{
		{name: "good first review", ease: 2.5, interval: 0, difficulty: Good, wantInterval: 1, wantEase: 2.5},
		{name: "good grows by ease", ease: 2.5, interval: 1, difficulty: Good, wantInterval: 3, wantEase: 2.5},
		{name: "good rounds up", ease: 2.5, interval: 3, difficulty: Good, wantInterval: 8, wantEase: 2.5},
		{name: "hard resets interval and drops ease", ease: 2.5, interval: 3, difficulty: Hard, wantInterval: 1, wantEase: 2.3},
		{name: "hard ease floor", ease: 1.4, interval: 10, difficulty: Hard, wantInterval: 1, wantEase: 1.3},
		{name: "easy first review", ease: 2.5, interval: 0, difficulty: Easy, wantInterval: 4, wantEase: 2.65},
		{name: "easy with bonus multiplier", ease: 2.3, interval: 1, difficulty: Easy, wantInterval: 3, wantEase: 2.45},
		{name: "easy larger interval", ease: 2.5, interval: 2, difficulty: Easy, wantInterval: 7, wantEase: 2.65},
		{name: "reset clears state", ease: 1.7, interval: 42, difficulty: Reset, wantInterval: 0, wantEase: 2.5},
		{name: "zero ease treated as default", ease: 0, interval: 1, difficulty: Good, wantInterval: 3, wantEase: 2.5},
		{name: "negative interval treated as zero", ease: 2.5, interval: -1, difficulty: Good, wantInterval: 1, wantEase: 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeNextInterval(tt.ease, tt.interval, tt.difficulty, now)

			assert.Equal(t, tt.wantInterval, got.Interval)
			assert.InDelta(t, tt.wantEase, got.Ease, 1e-9)
			assert.Equal(t, now.AddDate(0, 0, tt.wantInterval), got.NextReview)
		})
	}
}

// Последовательность good → good → hard → easy → reset из одного нового слова.
func TestComputeNextInterval_Sequence(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	r := ComputeNextInterval(2.5, 0, Good, now)
	assert.Equal(t, 1, r.Interval)
	assert.InDelta(t, 2.5, r.Ease, 1e-9)

	r = ComputeNextInterval(r.Ease, r.Interval, Good, now)
	assert.Equal(t, 3, r.Interval)
	assert.InDelta(t, 2.5, r.Ease, 1e-9)

	r = ComputeNextInterval(r.Ease, r.Interval, Hard, now)
	assert.Equal(t, 1, r.Interval)
	assert.InDelta(t, 2.3, r.Ease, 1e-9)

	r = ComputeNextInterval(r.Ease, r.Interval, Easy, now)
	assert.Equal(t, 3, r.Interval) // ceil(1*2.3*1.3) = ceil(2.99)
	assert.InDelta(t, 2.45, r.Ease, 1e-9)

	r = ComputeNextInterval(r.Ease, r.Interval, Reset, now)
	assert.Equal(t, 0, r.Interval)
	assert.InDelta(t, 2.5, r.Ease, 1e-9)
	assert.Equal(t, now, r.NextReview)
}
