// Package recipe turns decoded model output into structured recipe records.
//
// The model emits a flat token stream in which a section marker separates the
// title, ingredients and directions, and a separator marker splits list items.
// Normalizer rewrites that stream into plain text and Parse classifies each
// line by its prefix.
package recipe

// Image is the illustrative photo attached to a record after enrichment.
type Image struct {
	URL    string `json:"url"`
	Source string `json:"source,omitempty"`
	Label  string `json:"label,omitempty"`
}

// Record is a generated recipe.
// Ingredients and Directions are never nil so they always encode as JSON arrays.
type Record struct {
	Title       string   `json:"title"`
	Ingredients []string `json:"ingredients"`
	Directions  []string `json:"directions"`
	Image       *Image   `json:"image"`
}

// NewRecord returns an empty record with non-nil sections.
func NewRecord() *Record {
	return &Record{
		Ingredients: []string{},
		Directions:  []string{},
	}
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{
		Title:       r.Title,
		Ingredients: append([]string{}, r.Ingredients...),
		Directions:  append([]string{}, r.Directions...),
	}
	if r.Image != nil {
		img := *r.Image
		out.Image = &img
	}
	return out
}

// HasImage reports whether enrichment attached a photo.
func (r *Record) HasImage() bool {
	return r != nil && r.Image != nil && r.Image.URL != ""
}
