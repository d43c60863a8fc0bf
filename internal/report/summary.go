package report

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/franz/card-indexer/internal/util"
)

// MaxSampleMessages caps how many individual failure/skip messages a summary
// keeps; beyond the cap only the counter grows
const MaxSampleMessages = 10

// SyncSummary accumulates the outcome of one sync run
type SyncSummary struct {
	StartedAt time.Time

	Planned      int
	Downloaded   int
	Failed       int
	BytesWritten int64

	SkippedPresent   int
	SkippedNoImage   int
	SkippedDuplicate int

	failureSamples []string
	failureTotal   int
}

// NewSyncSummary starts a summary for a run beginning now
func NewSyncSummary() *SyncSummary {
	return &SyncSummary{StartedAt: time.Now()}
}

// RecordFailure counts a failure and keeps the message if under the cap
func (s *SyncSummary) RecordFailure(format string, args ...interface{}) {
	s.failureTotal++
	if len(s.failureSamples) < MaxSampleMessages {
		s.failureSamples = append(s.failureSamples, fmt.Sprintf(format, args...))
	}
}

// FailureSamples returns the retained messages and the total failure count
func (s *SyncSummary) FailureSamples() ([]string, int) {
	return s.failureSamples, s.failureTotal
}

// Skipped returns the total number of skipped candidates
func (s *SyncSummary) Skipped() int {
	return s.SkippedPresent + s.SkippedNoImage + s.SkippedDuplicate
}

// Print writes the summary through the logger
func (s *SyncSummary) Print() {
	elapsed := time.Since(s.StartedAt).Round(time.Second)

	util.InfoLog("Sync summary:")
	util.InfoLog("  planned:    %d", s.Planned)
	util.InfoLog("  downloaded: %d (%s)", s.Downloaded, humanize.Bytes(uint64(s.BytesWritten)))
	if skipped := s.Skipped(); skipped > 0 {
		util.InfoLog("  skipped:    %d (present: %d, no image: %d, duplicate url: %d)",
			skipped, s.SkippedPresent, s.SkippedNoImage, s.SkippedDuplicate)
	}
	if s.Failed > 0 {
		util.WarnLog("  failed:     %d", s.Failed)
	}
	util.InfoLog("  elapsed:    %s", elapsed)

	samples, total := s.FailureSamples()
	for _, msg := range samples {
		util.WarnLog("  failure: %s", msg)
	}
	if total > len(samples) {
		util.WarnLog("  ... and %d more failures", total-len(samples))
	}
}

// RefreshSummary accumulates the outcome of one index refresh
type RefreshSummary struct {
	StartedAt time.Time

	DatasetRefreshed bool
	RefreshReason    string
	Entries          int
	MissingID        int
	DecodeFailures   int
	OracleMerged     int
	PersistedTo      string
}

// NewRefreshSummary starts a summary for a refresh beginning now
func NewRefreshSummary() *RefreshSummary {
	return &RefreshSummary{StartedAt: time.Now()}
}

// Print writes the summary through the logger
func (s *RefreshSummary) Print() {
	elapsed := time.Since(s.StartedAt).Round(time.Second)

	util.InfoLog("Refresh summary:")
	if s.DatasetRefreshed {
		util.InfoLog("  dataset:    re-downloaded (%s)", s.RefreshReason)
	} else {
		util.InfoLog("  dataset:    reused (%s)", s.RefreshReason)
	}
	util.InfoLog("  entries:    %d", s.Entries)
	if s.MissingID > 0 {
		util.WarnLog("  skipped:    %d records without id", s.MissingID)
	}
	if s.DecodeFailures > 0 {
		util.WarnLog("  undecoded:  %d lines", s.DecodeFailures)
	}
	if s.OracleMerged > 0 {
		util.InfoLog("  augmented:  %d entries with oracle data", s.OracleMerged)
	}
	if s.PersistedTo != "" {
		util.InfoLog("  database:   %s", s.PersistedTo)
	}
	util.InfoLog("  elapsed:    %s", elapsed)
}
