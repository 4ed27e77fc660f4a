package models

// FieldDef is one named field slot of a note model.
type FieldDef struct {
	Name string `json:"name"`
	Ord  int    `json:"ord"`
}

// TemplateDef is one question/answer render rule of a note model.
type TemplateDef struct {
	Name string `json:"name"`
	Qfmt string `json:"qfmt"`
	Afmt string `json:"afmt"`
	Ord  int    `json:"ord"`
}

// Model is a card template definition: the ordered fields a note carries
// and the templates that turn those fields into card fronts and backs.
type Model struct {
	ID        string       `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	Fields    FieldDefs    `json:"fields" db:"fields"`
	Templates TemplateDefs `json:"templates" db:"templates"`
	CSS       string       `json:"css" db:"css"`
}

// TemplateByOrd returns the template with the given ordinal, or nil.
func (m *Model) TemplateByOrd(ord int) *TemplateDef {
	for i := range m.Templates {
		if m.Templates[i].Ord == ord {
			return &m.Templates[i]
		}
	}
	return nil
}

// FieldOrder returns the field names in their declared order.
func (m *Model) FieldOrder() []string {
	names := make([]string, 0, len(m.Fields))
	for _, f := range m.Fields {
		names = append(names, f.Name)
	}
	return names
}
