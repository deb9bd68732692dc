// Package unlock derives the lock state of a checkpoint scan from its
// creation time. Nothing here is stored; a restart cannot leave a scan
// stuck unlocked.
package unlock

import (
	"time"

	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
)

// DefaultGrace is how long a fresh scan stays open for corrections.
const DefaultGrace = 60 * time.Second

// Status is the derived unlock state of a scan.
type Status struct {
	LeftSeconds int64 `json:"leftSeconds"`
	Unlocked    bool  `json:"unlocked"`
	Locked      bool  `json:"locked"`
	ExpiresAtMs int64 `json:"expiresAtMs"`
}

// Of computes the status of s at now. The scan is unlocked while
// now is in [createdAt, createdAt+grace) and it was not explicitly locked.
func Of(s model.Scan, now time.Time, grace time.Duration) Status {
	if grace <= 0 {
		grace = DefaultGrace
	}
	expires := s.CreatedAtMs + grace.Milliseconds()
	left := ceilDiv(expires-now.UnixMilli(), 1000)
	if left < 0 {
		left = 0
	}
	return Status{
		LeftSeconds: left,
		Unlocked:    left > 0 && !s.Locked,
		Locked:      s.Locked,
		ExpiresAtMs: expires,
	}
}

// Reopened returns the merge fields that reopen the scan of team at the
// checkpoint: a fresh window starting at now.
func Reopened(teamID, roundID, checkpointID string, now time.Time) model.Scan {
	ms := now.UnixMilli()
	return model.Scan{
		TeamID:       teamID,
		RoundID:      roundID,
		CheckpointID: checkpointID,
		CreatedAtMs:  ms,
		UpdatedAtMs:  ms,
		ReopenedAtMs: ms,
		Locked:       false,
	}
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a > 0) == (b > 0) {
		q++
	}
	return q
}
