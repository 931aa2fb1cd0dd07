// Package bookstacktest provides an in-memory fake BookStack server for
// tests. It implements the subset of the API the exporter uses: shelf,
// book, chapter, and page lookup/creation, page update, and shelf-book
// assignment, with per-level call counters for asserting idempotence.
package bookstacktest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Node is a stored tree node at any level.
type Node struct {
	ID          int64  `json:"id"`
	ParentID    int64  `json:"-"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Markdown    string `json:"markdown,omitempty"`
}

// Server is a fake BookStack instance backed by in-memory maps.
//
// All exported fields are guarded by Mu; take it before inspecting state
// from test assertions that race with in-flight requests.
type Server struct {
	*httptest.Server

	Mu       sync.Mutex
	Shelves  []*Node
	Books    []*Node
	Chapters []*Node
	Pages    []*Node

	// ShelfBooks records shelf → book assignments.
	ShelfBooks map[int64][]int64

	// Creates counts creation calls per level ("shelf", "book", "chapter",
	// "page"); Updates counts page updates. Together they verify the
	// at-most-one-creation invariant.
	Creates map[string]int
	Updates int

	// NestedCreates counts chapter creations that arrived on the nested
	// /api/books/{id}/chapters route rather than the flat one.
	NestedCreates int

	// PageWriteStatus forces a status code for create/update of pages
	// whose folded title matches the key. Zero means success.
	PageWriteStatus map[string]int

	// ExtraFields, when set, is merged into every node response to
	// exercise unknown-field tolerance in clients.
	ExtraFields map[string]any

	// RequireAuth rejects requests without a Token authorization header.
	RequireAuth bool

	// OnPageWrite, when set, runs after every successful page create or
	// update with the page title, outside Mu.
	OnPageWrite func(title string)

	nextID int64
}

// New starts a fake BookStack server. Close it with Close().
func New() *Server {
	s := &Server{
		ShelfBooks:      make(map[int64][]int64),
		Creates:         make(map[string]int),
		PageWriteStatus: make(map[string]int),
		RequireAuth:     true,
	}

	r := chi.NewRouter()
	r.Use(s.authMiddleware)

	r.Get("/api/shelves", s.handleList(&s.Shelves))
	r.Post("/api/shelves", s.handleCreate(&s.Shelves, "shelf", 0))
	r.Put("/api/shelves/{id}/books", s.handleAssignBooks)

	r.Get("/api/books", s.handleList(&s.Books))
	r.Post("/api/books", s.handleCreate(&s.Books, "book", 0))

	r.Get("/api/books/{id}/chapters", s.handleChildren(&s.Chapters))
	r.Post("/api/books/{id}/chapters", s.handleCreateChapterNested)
	r.Post("/api/chapters", s.handleCreateChapterFlat)

	r.Get("/api/chapters/{id}/pages", s.handleChildren(&s.Pages))
	r.Post("/api/chapters/{id}/pages", s.handleCreatePage)
	r.Put("/api/pages/{id}", s.handleUpdatePage)

	s.Server = httptest.NewServer(r)
	return s
}

// CreateCount returns the number of creation calls for a level.
func (s *Server) CreateCount(level string) int {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.Creates[level]
}

// UpdateCount returns the number of page update calls.
func (s *Server) UpdateCount() int {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.Updates
}

// PageByName returns the stored page with the given title, or nil.
func (s *Server) PageByName(name string) *Node {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	for _, p := range s.Pages {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

// ChapterByName returns the stored chapter with the given name, or nil.
func (s *Server) ChapterByName(name string) *Node {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	for _, c := range s.Chapters {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.RequireAuth && !strings.HasPrefix(r.Header.Get("Authorization"), "Token ") {
			s.writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // test fake
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": status, "message": msg},
	})
}

func (s *Server) writeNode(w http.ResponseWriter, status int, n *Node) {
	out := map[string]any{
		"id":   n.ID,
		"name": n.Name,
		"slug": n.Slug,
	}
	if n.Description != "" {
		out["description"] = n.Description
	}
	if n.Markdown != "" {
		out["markdown"] = n.Markdown
	}
	if n.ParentID != 0 {
		// Chapters carry book_id, pages carry chapter_id; sending both is
		// harmless for a fake and keeps this generic.
		out["book_id"] = n.ParentID
		out["chapter_id"] = n.ParentID
	}
	for k, v := range s.ExtraFields {
		out[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // test fake
	json.NewEncoder(w).Encode(out)
}

func (s *Server) writeList(w http.ResponseWriter, nodes []*Node) {
	data := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		item := map[string]any{"id": n.ID, "name": n.Name, "slug": n.Slug}
		if n.ParentID != 0 {
			item["book_id"] = n.ParentID
			item["chapter_id"] = n.ParentID
		}
		for k, v := range s.ExtraFields {
			item[k] = v
		}
		data = append(data, item)
	}
	w.Header().Set("Content-Type", "application/json")
	//nolint:errcheck // test fake
	json.NewEncoder(w).Encode(map[string]any{"data": data, "total": len(data)})
}

func (s *Server) handleList(store *[]*Node) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.Mu.Lock()
		defer s.Mu.Unlock()
		s.writeList(w, *store)
	}
}

func (s *Server) handleChildren(store *[]*Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parentID, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		s.Mu.Lock()
		defer s.Mu.Unlock()
		var children []*Node
		for _, n := range *store {
			if n.ParentID == parentID {
				children = append(children, n)
			}
		}
		s.writeList(w, children)
	}
}

func (s *Server) handleCreate(store *[]*Node, level string, parentID int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
			s.writeError(w, http.StatusUnprocessableEntity, "The name field is required.")
			return
		}

		s.Mu.Lock()
		defer s.Mu.Unlock()
		s.Creates[level]++
		n := s.newNode(body.Name, body.Description, parentID)
		*store = append(*store, n)
		s.writeNode(w, http.StatusCreated, n)
	}
}

func (s *Server) handleCreateChapterFlat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		BookID      int64  `json:"book_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" || body.BookID == 0 {
		s.writeError(w, http.StatusUnprocessableEntity, "The name and book_id fields are required.")
		return
	}

	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.Creates["chapter"]++
	n := s.newNode(body.Name, body.Description, body.BookID)
	s.Chapters = append(s.Chapters, n)
	s.writeNode(w, http.StatusCreated, n)
}

func (s *Server) handleCreateChapterNested(w http.ResponseWriter, r *http.Request) {
	bookID, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		s.writeError(w, http.StatusUnprocessableEntity, "The name field is required.")
		return
	}

	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.Creates["chapter"]++
	s.NestedCreates++
	n := s.newNode(body.Name, body.Description, bookID)
	s.Chapters = append(s.Chapters, n)
	s.writeNode(w, http.StatusCreated, n)
}

func (s *Server) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	chapterID, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var body struct {
		Title    string `json:"title"`
		Markdown string `json:"markdown"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Title == "" {
		s.writeError(w, http.StatusUnprocessableEntity, "The title field is required.")
		return
	}

	s.Mu.Lock()
	if status := s.PageWriteStatus[strings.ToLower(body.Title)]; status != 0 {
		s.Mu.Unlock()
		s.writeError(w, status, "injected failure")
		return
	}
	s.Creates["page"]++
	n := s.newNode(body.Title, "", chapterID)
	n.Markdown = body.Markdown
	s.Pages = append(s.Pages, n)
	s.writeNode(w, http.StatusCreated, n)
	s.Mu.Unlock()

	if s.OnPageWrite != nil {
		s.OnPageWrite(body.Title)
	}
}

func (s *Server) handleUpdatePage(w http.ResponseWriter, r *http.Request) {
	pageID, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var body struct {
		Title    string `json:"title"`
		Markdown string `json:"markdown"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Title == "" {
		s.writeError(w, http.StatusUnprocessableEntity, "The title field is required.")
		return
	}

	s.Mu.Lock()
	if status := s.PageWriteStatus[strings.ToLower(body.Title)]; status != 0 {
		s.Mu.Unlock()
		s.writeError(w, status, "injected failure")
		return
	}
	for _, p := range s.Pages {
		if p.ID == pageID {
			s.Updates++
			p.Name = body.Title
			p.Markdown = body.Markdown
			s.writeNode(w, http.StatusOK, p)
			s.Mu.Unlock()

			if s.OnPageWrite != nil {
				s.OnPageWrite(body.Title)
			}
			return
		}
	}
	s.Mu.Unlock()
	s.writeError(w, http.StatusNotFound, "Page not found")
}

func (s *Server) handleAssignBooks(w http.ResponseWriter, r *http.Request) {
	shelfID, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var body struct {
		Books []int64 `json:"books"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, "The books field is required.")
		return
	}

	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.ShelfBooks[shelfID] = append(s.ShelfBooks[shelfID], body.Books...)
	w.Header().Set("Content-Type", "application/json")
	//nolint:errcheck // test fake
	json.NewEncoder(w).Encode(map[string]any{"books": s.ShelfBooks[shelfID]})
}

func (s *Server) newNode(name, description string, parentID int64) *Node {
	s.nextID++
	return &Node{
		ID:          s.nextID,
		ParentID:    parentID,
		Name:        name,
		Slug:        slugify(name),
		Description: description,
	}
}

func slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
