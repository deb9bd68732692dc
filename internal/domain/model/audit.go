package model

// Snapshot is a field value and note at one point in time.
type Snapshot struct {
	Value any    `mapstructure:"v" json:"v"`
	Note  string `mapstructure:"n" json:"n"`
}

// AuditRecord is an append-only trace of one committed save.
type AuditRecord struct {
	ID     string   `mapstructure:"-" json:"id"`
	Actor  string   `mapstructure:"uid" json:"uid"`
	TeamID string   `mapstructure:"teamId" json:"teamId"`
	Field  string   `mapstructure:"probeId" json:"probeId"`
	Sub    string   `mapstructure:"colKey" json:"colKey,omitempty"`
	Before Snapshot `mapstructure:"before" json:"before"`
	After  Snapshot `mapstructure:"after" json:"after"`
	At     int64    `mapstructure:"at" json:"at"`
}
