// Package schedule decides whether a backup job is due (the schedule
// gate) and which retention tiers should be promoted this run (the
// calendar trigger).
package schedule

import "time"

// GateInput carries everything the gate needs to decide proceed vs skip.
type GateInput struct {
	Hourlies   int // H, must be >= 1
	Slot0MTime time.Time
	Now        time.Time
	MustExceed time.Duration
	Force      bool
	AutoTime   bool
}

// Proceed reports whether a new hourly snapshot is due. A force flag or a
// disabled auto-time setting always proceeds. Otherwise the gate requires
// more than must_exceed to have elapsed since slot 0's mtime, where
// must_exceed is the larger of a per-hourly-count floor and the
// configured MustExceed.
func Proceed(in GateInput) bool {
	if in.Force || !in.AutoTime {
		return true
	}

	floorSeconds := (24.0/float64(in.Hourlies) - 0.5) * 3600
	floor := time.Duration(floorSeconds * float64(time.Second))
	mustExceed := in.MustExceed
	if floor > mustExceed {
		mustExceed = floor
	}

	elapsed := in.Now.Sub(in.Slot0MTime)
	return elapsed > mustExceed
}
