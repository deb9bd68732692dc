// Package model contains domain models passed between layers.
package model

// Document field names of a team record.
const (
	FieldScores  = "scores"
	FieldNotes   = "scoresNotes"
	FieldMetaKey = "scoresMeta"
)

// Team is one competing team with its persisted judge scores.
//
// Scores maps a field (topic id or MP composite key) either to a number or,
// for multi-column fields, to a map of column key to number.
type Team struct {
	ID     string               `mapstructure:"-" json:"id"`
	Name   string               `mapstructure:"name" json:"name"`
	Scores map[string]any       `mapstructure:"scores" json:"scores,omitempty"`
	Notes  map[string]Note      `mapstructure:"scoresNotes" json:"scoresNotes,omitempty"`
	Meta   map[string]FieldMeta `mapstructure:"scoresMeta" json:"scoresMeta,omitempty"`
}

// Note holds the judge note of a field, either whole-field or per column.
type Note struct {
	Text string            `mapstructure:"text" json:"text,omitempty"`
	Cols map[string]string `mapstructure:"cols" json:"cols,omitempty"`
}

// SaveMeta records the fingerprint of the last committed save.
type SaveMeta struct {
	Hash        string `mapstructure:"hash" json:"hash"`
	LastSavedAt int64  `mapstructure:"lastSavedAt" json:"lastSavedAt"`
}

// FieldMeta is the save metadata of a field and of its columns.
type FieldMeta struct {
	SaveMeta `mapstructure:",squash"`
	Cols     map[string]SaveMeta `mapstructure:"cols" json:"cols,omitempty"`
}

// DisplayName returns Name, falling back to ID.
func (t Team) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// Raw returns the persisted raw value of a field or one of its columns.
func (t Team) Raw(field, sub string) (any, bool) {
	v, ok := t.Scores[field]
	if !ok {
		return nil, false
	}
	if sub == "" {
		return v, true
	}
	cols, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	cv, ok := cols[sub]
	return cv, ok
}

// NoteFor returns the persisted note of a field or one of its columns.
func (t Team) NoteFor(field, sub string) string {
	n, ok := t.Notes[field]
	if !ok {
		return ""
	}
	if sub == "" {
		return n.Text
	}
	return n.Cols[sub]
}

// MetaFor returns the persisted save metadata of a field or one of its columns.
func (t Team) MetaFor(field, sub string) SaveMeta {
	m, ok := t.Meta[field]
	if !ok {
		return SaveMeta{}
	}
	if sub == "" {
		return m.SaveMeta
	}
	return m.Cols[sub]
}

// FieldRef addresses one judge-editable value: a team, a field and an
// optional column.
type FieldRef struct {
	TeamID string `json:"teamId"`
	Field  string `json:"field"`
	Sub    string `json:"sub,omitempty"`
}

// ScorePath is the document path of the value.
func (r FieldRef) ScorePath() []string {
	if r.Sub == "" {
		return []string{FieldScores, r.Field}
	}
	return []string{FieldScores, r.Field, r.Sub}
}

// NotePath is the document path of the note.
func (r FieldRef) NotePath() []string {
	if r.Sub == "" {
		return []string{FieldNotes, r.Field, "text"}
	}
	return []string{FieldNotes, r.Field, "cols", r.Sub}
}

// MetaPath is the document path of the save metadata.
func (r FieldRef) MetaPath() []string {
	if r.Sub == "" {
		return []string{FieldMetaKey, r.Field}
	}
	return []string{FieldMetaKey, r.Field, "cols", r.Sub}
}

func (r FieldRef) String() string {
	if r.Sub == "" {
		return r.TeamID + "/" + r.Field
	}
	return r.TeamID + "/" + r.Field + "/" + r.Sub
}
