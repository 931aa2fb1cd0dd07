package bookstack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// FindChapter looks up a chapter by name within a book, case-insensitively.
//
// A book with no chapters yet is a normal miss, not a failure: the API's
// 404 on the child listing is folded into ErrNotFound.
//
// Returns:
//   - *Chapter: The first chapter whose name matches
//   - error: ErrNotFound when no chapter matches; a terminal error otherwise
func (c *Client) FindChapter(ctx context.Context, bookID int64, name string) (*Chapter, error) {
	var out listEnvelope[Chapter]
	err := c.call(ctx, callSpec{
		op: "find", level: "chapter", name: name,
		method: http.MethodGet, path: fmt.Sprintf("/api/books/%d/chapters", bookID),
		out: &out,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	folded := foldName(name)
	for i := range out.Data {
		if foldName(out.Data[i].Name) == folded {
			return &out.Data[i], nil
		}
	}
	return nil, ErrNotFound
}

// CreateChapter creates a new chapter within a book.
//
// The route shape depends on the target deployment. The documented
// BookStack contract is a flat POST /api/chapters with book_id in the
// body; some deployments expose a nested POST /api/books/{id}/chapters
// instead. The client follows whichever the configuration selects.
//
// Returns:
//   - *Chapter: The created chapter with its store-assigned ID
//   - error: A terminal error on any non-success status
func (c *Client) CreateChapter(ctx context.Context, bookID int64, name, description string) (*Chapter, error) {
	spec := callSpec{
		op: "create", level: "chapter", name: name,
		method: http.MethodPost,
	}

	if c.nestedChapterRoutes {
		spec.path = fmt.Sprintf("/api/books/%d/chapters", bookID)
		spec.payload = map[string]any{"name": name, "description": description}
	} else {
		spec.path = "/api/chapters"
		spec.payload = map[string]any{"name": name, "description": description, "book_id": bookID}
	}

	var out Chapter
	spec.out = &out
	if err := c.call(ctx, spec); err != nil {
		return nil, err
	}
	c.logger.Info("created chapter", "name", name, "id", out.ID, "book_id", bookID)
	return &out, nil
}
