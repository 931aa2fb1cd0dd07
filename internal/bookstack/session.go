package bookstack

import (
	"context"
	"errors"
)

// Session is the run-scoped layer over a Client.
//
// It caches every node discovered or created during one export run, keyed
// by (level, parent, folded name), which guarantees at most one creation
// attempt per (parent, name) pair per run. Create one Session per run and
// discard it when the run ends; the cache must never outlive a run or be
// shared between concurrent runs.
//
// Session is not safe for concurrent use. The export orchestrator
// processes the tree sequentially, which is also what keeps two
// find-or-create calls for the same not-yet-existing node from racing.
type Session struct {
	client *Client
	nodes  map[nodeKey]any
}

// nodeKey identifies a cached node within a run.
type nodeKey struct {
	level    string
	parentID int64
	name     string // folded
}

// NewSession creates a fresh run-scoped session. The underlying client and
// its transport are shared; the cache is new and empty.
func (c *Client) NewSession() *Session {
	return &Session{
		client: c,
		nodes:  make(map[nodeKey]any),
	}
}

// FindOrCreateShelf returns the shelf with the given name, creating it if
// absent. The result is cached for the rest of the run.
func (s *Session) FindOrCreateShelf(ctx context.Context, name, description string) (*Shelf, error) {
	key := nodeKey{level: "shelf", name: foldName(name)}
	if cached, ok := s.nodes[key]; ok {
		return cached.(*Shelf), nil
	}

	shelf, err := s.client.FindShelf(ctx, name)
	if errors.Is(err, ErrNotFound) {
		shelf, err = s.client.CreateShelf(ctx, name, description)
	}
	if err != nil {
		return nil, err
	}

	s.nodes[key] = shelf
	return shelf, nil
}

// FindOrCreateBook returns the book with the given name, creating it if
// absent. The result is cached for the rest of the run.
func (s *Session) FindOrCreateBook(ctx context.Context, name, description string) (*Book, error) {
	key := nodeKey{level: "book", name: foldName(name)}
	if cached, ok := s.nodes[key]; ok {
		return cached.(*Book), nil
	}

	book, err := s.client.FindBook(ctx, name)
	if errors.Is(err, ErrNotFound) {
		book, err = s.client.CreateBook(ctx, name, description)
	}
	if err != nil {
		return nil, err
	}

	s.nodes[key] = book
	return book, nil
}

// AssignBookToShelf attaches a book to a shelf via the underlying client.
func (s *Session) AssignBookToShelf(ctx context.Context, shelfID, bookID int64) error {
	return s.client.AssignBookToShelf(ctx, shelfID, bookID)
}

// FindOrCreateChapter returns the chapter with the given name under the
// book, creating it if absent. The result is cached for the rest of the run.
func (s *Session) FindOrCreateChapter(ctx context.Context, bookID int64, name, description string) (*Chapter, error) {
	key := nodeKey{level: "chapter", parentID: bookID, name: foldName(name)}
	if cached, ok := s.nodes[key]; ok {
		return cached.(*Chapter), nil
	}

	chapter, err := s.client.FindChapter(ctx, bookID, name)
	if errors.Is(err, ErrNotFound) {
		chapter, err = s.client.CreateChapter(ctx, bookID, name, description)
	}
	if err != nil {
		return nil, err
	}

	s.nodes[key] = chapter
	return chapter, nil
}

// CreateOrUpdatePage upserts a page under a chapter. A page that already
// exists by name is always updated with the fresh content; the export is
// overwriting, never additive-only.
//
// Returns:
//   - *Page: The created or updated page
//   - bool: true if the page was created, false if an existing one was updated
//   - error: A terminal error from find, create, or update
func (s *Session) CreateOrUpdatePage(ctx context.Context, chapterID int64, name, markdown string) (*Page, bool, error) {
	key := nodeKey{level: "page", parentID: chapterID, name: foldName(name)}

	// A cached entry means this run already wrote the page; a second write
	// for the same name is an update against the known ID.
	if cached, ok := s.nodes[key]; ok {
		page, err := s.client.UpdatePage(ctx, cached.(*Page).ID, name, markdown)
		if err != nil {
			return nil, false, err
		}
		s.nodes[key] = page
		return page, false, nil
	}

	existing, err := s.client.FindPage(ctx, chapterID, name)
	switch {
	case errors.Is(err, ErrNotFound):
		page, err := s.client.CreatePage(ctx, chapterID, name, markdown)
		if err != nil {
			return nil, false, err
		}
		s.nodes[key] = page
		return page, true, nil
	case err != nil:
		return nil, false, err
	default:
		page, err := s.client.UpdatePage(ctx, existing.ID, name, markdown)
		if err != nil {
			return nil, false, err
		}
		s.nodes[key] = page
		return page, false, nil
	}
}
