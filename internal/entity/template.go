package entity

// Template guides extraction towards a fixed set of output fields.
type Template struct {
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description,omitempty" yaml:"description"`
	Fields       []string `json:"fields,omitempty" yaml:"fields"`
	Instructions string   `json:"instructions,omitempty" yaml:"instructions"`
	Source       string   `json:"source,omitempty" yaml:"-"`
}

// Clone returns a deep copy of t, or nil.
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	out := *t
	if t.Fields != nil {
		out.Fields = append([]string(nil), t.Fields...)
	}
	return &out
}
