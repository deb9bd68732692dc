package model

// Scan is the merged record of a team reaching a checkpoint.
type Scan struct {
	ID           string   `mapstructure:"-" json:"id"`
	TeamID       string   `mapstructure:"teamId" json:"teamId"`
	RoundID      string   `mapstructure:"roundId" json:"roundId"`
	CheckpointID string   `mapstructure:"cpId" json:"cpId"`
	CreatedAtMs  int64    `mapstructure:"createdAtMs" json:"createdAtMs"`
	UpdatedAtMs  int64    `mapstructure:"updatedAtMs" json:"updatedAtMs"`
	Locked       bool     `mapstructure:"locked" json:"locked"`
	Temp         *float64 `mapstructure:"temp" json:"temp,omitempty"`
	Humidity     *float64 `mapstructure:"humidity" json:"humidity,omitempty"`
	// ReopenedAtMs is set when an administrator restarted the window.
	ReopenedAtMs int64    `mapstructure:"reopenedAtMs" json:"reopenedAtMs,omitempty"`
}

// Backdates reports whether an event at ts moves the first-reach time of s
// back. An event older than a reopen never does.
func (s Scan) Backdates(ts int64) bool {
	return ts < s.CreatedAtMs && ts >= s.ReopenedAtMs
}

// ScanKey builds the canonical key of the scan of team at checkpoint.
func ScanKey(teamID, roundID, checkpointID string) string {
	return teamID + "_" + roundID + "_" + checkpointID
}

// Key returns the canonical key of s.
func (s Scan) Key() string { return ScanKey(s.TeamID, s.RoundID, s.CheckpointID) }

// Touched returns the most recent timestamp carried by s.
func (s Scan) Touched() int64 {
	if s.UpdatedAtMs > s.CreatedAtMs {
		return s.UpdatedAtMs
	}
	return s.CreatedAtMs
}

// ScanEvent is a verified checkpoint scan submitted by a device.
type ScanEvent struct {
	EventID      string
	TeamID       string
	RoundID      string
	CheckpointID string
	TS           int64
	Temp         *float64
	Humidity     *float64
}
