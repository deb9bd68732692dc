package rubric

import "strings"

const missionKeyPrefix = "MP:"

// Topic is a weighted judging category. A topic without columns is scored
// as a single scalar.
type Topic struct {
	ID      string   `mapstructure:"-" json:"id"`
	Weight  float64  `mapstructure:"weight" json:"weight"`
	Columns []Column `mapstructure:"-" json:"columns"`
}

// IsMission reports whether t is the Mission Performance topic.
func (t Topic) IsMission() bool { return t.ID == MissionTopicID }

// MissionKey is the score field holding column col of the MP topic for round.
func MissionKey(roundID, col string) string {
	return missionKeyPrefix + roundID + ":" + col
}

// ParseMissionKey splits an MP score field into round and column.
func ParseMissionKey(field string) (roundID, col string, ok bool) {
	rest, found := strings.CutPrefix(field, missionKeyPrefix)
	if !found {
		return "", "", false
	}
	i := strings.LastIndexByte(rest, ':')
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}

// ValidTopicName reports whether name may be used for a judge-created topic.
func ValidTopicName(name string) error {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return ErrEmptyTopicName
	case name == MissionTopicID:
		return ErrReservedTopic
	case strings.ContainsAny(name, ".:"):
		return ErrInvalidTopicName
	}
	return nil
}
