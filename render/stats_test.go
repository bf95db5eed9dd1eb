package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStatsAveragesRecordedDurations(t *testing.T) {
	var s Scheduler
	s.record(10 * time.Millisecond)
	s.record(20 * time.Millisecond)

	require.Equal(t, 15*time.Millisecond, s.Stats().AvgFrame)
}

func TestStatsWindowIsBounded(t *testing.T) {
	var s Scheduler
	for i := 0; i < statsWindow; i++ {
		s.record(time.Second)
	}
	for i := 0; i < statsWindow; i++ {
		s.record(time.Millisecond)
	}

	// Only the most recent window contributes.
	require.Equal(t, time.Millisecond, s.Stats().AvgFrame)
}

func TestStatsEmpty(t *testing.T) {
	var s Scheduler
	require.Equal(t, FrameStats{}, s.Stats())
}
