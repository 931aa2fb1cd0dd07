package bookstack

import (
	"encoding/json"
	"testing"
)

func TestPage_UnmarshalJSON_UnknownFields(t *testing.T) {
	// A response containing fields this client has never heard of must
	// decode cleanly and keep them retrievable.
	data := []byte(`{
		"id": 42,
		"book_id": 7,
		"chapter_id": 9,
		"name": "Living Room",
		"slug": "living-room",
		"markdown": "# Living Room",
		"created_at": "2026-01-02T03:04:05Z",
		"priority": 12,
		"editor": "markdown",
		"template": false,
		"revision_count": {"nested": true}
	}`)

	var page Page
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if page.ID != 42 {
		t.Errorf("ID = %d, want 42", page.ID)
	}
	if page.ChapterID != 9 {
		t.Errorf("ChapterID = %d, want 9", page.ChapterID)
	}
	if page.Name != "Living Room" {
		t.Errorf("Name = %q, want %q", page.Name, "Living Room")
	}

	for _, key := range []string{"priority", "editor", "template", "revision_count"} {
		if _, ok := page.Extra[key]; !ok {
			t.Errorf("Extra[%q] missing, unknown field was dropped", key)
		}
	}
	if _, ok := page.Extra["id"]; ok {
		t.Error("Extra contains known field \"id\"")
	}

	var priority int
	if err := json.Unmarshal(page.Extra["priority"], &priority); err != nil {
		t.Fatalf("unmarshalling Extra[priority]: %v", err)
	}
	if priority != 12 {
		t.Errorf("Extra[priority] = %d, want 12", priority)
	}
}

func TestPage_MarshalJSON_RoundTripsUnknownFields(t *testing.T) {
	in := []byte(`{"id":1,"book_id":2,"chapter_id":3,"name":"Kitchen","slug":"kitchen","editor":"wysiwyg","draft":true}`)

	var page Page
	if err := json.Unmarshal(in, &page); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	out, err := json.Marshal(page)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatalf("re-parsing marshalled page: %v", err)
	}

	if m["editor"] != "wysiwyg" {
		t.Errorf("editor = %v, want %q", m["editor"], "wysiwyg")
	}
	if m["draft"] != true {
		t.Errorf("draft = %v, want true", m["draft"])
	}
	if m["name"] != "Kitchen" {
		t.Errorf("name = %v, want %q", m["name"], "Kitchen")
	}
}

func TestShelf_UnmarshalJSON_NoUnknownFields(t *testing.T) {
	var shelf Shelf
	if err := json.Unmarshal([]byte(`{"id":5,"name":"Docs","slug":"docs"}`), &shelf); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if shelf.Extra != nil {
		t.Errorf("Extra = %v, want nil when nothing is left over", shelf.Extra)
	}
}

func TestChapter_UnmarshalJSON_KeepsParentReference(t *testing.T) {
	data := []byte(`{"id":11,"book_id":4,"name":"Ground Floor","slug":"ground-floor","book_slug":"smarthome"}`)

	var chapter Chapter
	if err := json.Unmarshal(data, &chapter); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if chapter.BookID != 4 {
		t.Errorf("BookID = %d, want 4", chapter.BookID)
	}
	if _, ok := chapter.Extra["book_slug"]; !ok {
		t.Error("Extra[book_slug] missing")
	}
}
