package report

import (
	"fmt"
	"testing"
)

func TestFailureSamplesAreCapped(t *testing.T) {
	s := NewSyncSummary()

	for i := 0; i < MaxSampleMessages+5; i++ {
		s.RecordFailure("download %d failed", i)
	}

	samples, total := s.FailureSamples()
	if len(samples) != MaxSampleMessages {
		t.Errorf("expected %d retained samples, got %d", MaxSampleMessages, len(samples))
	}
	if total != MaxSampleMessages+5 {
		t.Errorf("expected total %d, got %d", MaxSampleMessages+5, total)
	}

	// Earliest messages are the ones kept
	if samples[0] != "download 0 failed" {
		t.Errorf("unexpected first sample %q", samples[0])
	}
	if samples[len(samples)-1] != fmt.Sprintf("download %d failed", MaxSampleMessages-1) {
		t.Errorf("unexpected last sample %q", samples[len(samples)-1])
	}
}

func TestSkippedTotals(t *testing.T) {
	s := NewSyncSummary()
	s.SkippedPresent = 3
	s.SkippedNoImage = 2
	s.SkippedDuplicate = 1

	if s.Skipped() != 6 {
		t.Errorf("expected 6 skipped, got %d", s.Skipped())
	}
}
