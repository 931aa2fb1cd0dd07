package bookstack

import "encoding/json"

// The node types below decode only the fields the exporter uses. Every
// other field the API returns lands in Extra as raw JSON, keyed by field
// name, and is carried back out by MarshalJSON. The BookStack response
// schema gains fields between releases; an unrecognised field must never
// fail a decode.

// Shelf is a BookStack bookshelf, the top of the tree.
type Shelf struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`

	// Extra holds response fields not modelled above, round-tripped opaquely.
	Extra map[string]json.RawMessage `json:"-"`
}

// Book is a BookStack book, attached to a shelf.
type Book struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Chapter is a BookStack chapter within a book. One chapter per floor.
type Chapter struct {
	ID          int64  `json:"id"`
	BookID      int64  `json:"book_id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Page is a BookStack page within a chapter. One page per location.
type Page struct {
	ID        int64  `json:"id"`
	BookID    int64  `json:"book_id"`
	ChapterID int64  `json:"chapter_id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Markdown  string `json:"markdown,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// extraFields returns the subset of raw not claimed by the known keys,
// or nil when nothing is left over.
func extraFields(raw map[string]json.RawMessage, known ...string) map[string]json.RawMessage {
	for _, k := range known {
		delete(raw, k)
	}
	if len(raw) == 0 {
		return nil
	}
	return raw
}

// mergeExtra re-attaches opaque fields to a marshalled node. Typed fields
// win on key collision.
func mergeExtra(typed []byte, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return typed, nil
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(typed, &out); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

func (s *Shelf) UnmarshalJSON(data []byte) error {
	type alias Shelf
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.Extra = extraFields(raw, "id", "name", "slug", "description", "created_at", "updated_at")
	*s = Shelf(a)
	return nil
}

func (s Shelf) MarshalJSON() ([]byte, error) {
	type alias Shelf
	typed, err := json.Marshal(alias(s))
	if err != nil {
		return nil, err
	}
	return mergeExtra(typed, s.Extra)
}

func (b *Book) UnmarshalJSON(data []byte) error {
	type alias Book
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.Extra = extraFields(raw, "id", "name", "slug", "description", "created_at", "updated_at")
	*b = Book(a)
	return nil
}

func (b Book) MarshalJSON() ([]byte, error) {
	type alias Book
	typed, err := json.Marshal(alias(b))
	if err != nil {
		return nil, err
	}
	return mergeExtra(typed, b.Extra)
}

func (c *Chapter) UnmarshalJSON(data []byte) error {
	type alias Chapter
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.Extra = extraFields(raw, "id", "book_id", "name", "slug", "description", "created_at", "updated_at")
	*c = Chapter(a)
	return nil
}

func (c Chapter) MarshalJSON() ([]byte, error) {
	type alias Chapter
	typed, err := json.Marshal(alias(c))
	if err != nil {
		return nil, err
	}
	return mergeExtra(typed, c.Extra)
}

func (p *Page) UnmarshalJSON(data []byte) error {
	type alias Page
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.Extra = extraFields(raw, "id", "book_id", "chapter_id", "name", "slug", "markdown", "created_at", "updated_at")
	*p = Page(a)
	return nil
}

func (p Page) MarshalJSON() ([]byte, error) {
	type alias Page
	typed, err := json.Marshal(alias(p))
	if err != nil {
		return nil, err
	}
	return mergeExtra(typed, p.Extra)
}

// listEnvelope is the wrapper BookStack puts around list responses.
type listEnvelope[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}
