package model

// Round is one mission run with its checkpoint count and sensor references.
type Round struct {
	ID               string     `mapstructure:"-" json:"id"`
	TotalCheckpoints int        `mapstructure:"totalCheckpoints" json:"totalCheckpoints"`
	TargetTemp       *float64   `mapstructure:"targetTemp" json:"targetTemp"`
	TargetHumidity   *float64   `mapstructure:"targetHumidity" json:"targetHumidity"`
	RefTemps         []*float64 `mapstructure:"refTemps" json:"refTemps"`
	RefHumidity      []*float64 `mapstructure:"refHumidity" json:"refHumidity"`
	CreatedAt        int64      `mapstructure:"createdAt" json:"createdAt"`
	UpdatedAt        int64      `mapstructure:"updatedAt" json:"updatedAt"`
	// RenamedFrom names the round this one is being renamed from while the
	// move is incomplete. It is cleared once the old round is gone.
	RenamedFrom      string     `mapstructure:"renamedFrom" json:"renamedFrom,omitempty"`
}

// RefTemp returns the reference temperature of a 1-based checkpoint order.
func (r Round) RefTemp(order int) *float64 { return refAt(r.RefTemps, order) }

// RefHum returns the reference humidity of a 1-based checkpoint order.
func (r Round) RefHum(order int) *float64 { return refAt(r.RefHumidity, order) }

func refAt(refs []*float64, order int) *float64 {
	if order < 1 || order > len(refs) {
		return nil
	}
	return refs[order-1]
}

// PadRefs resizes refs to n entries, keeping existing values and filling nil.
func PadRefs(refs []*float64, n int) []*float64 {
	if n < 0 {
		n = 0
	}
	out := make([]*float64, n)
	copy(out, refs)
	return out
}

// Checkpoint is a physical station of a round, identified by its order.
type Checkpoint struct {
	ID        string `mapstructure:"-" json:"id"`
	RoundID   string `mapstructure:"roundId" json:"roundId"`
	Order     int    `mapstructure:"order" json:"order"`
	Active    bool   `mapstructure:"isActive" json:"isActive"`
	Secret    string `mapstructure:"secret" json:"-"`
	CreatedAt int64  `mapstructure:"createdAt" json:"createdAt"`
}
