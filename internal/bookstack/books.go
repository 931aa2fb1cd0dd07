package bookstack

import (
	"context"
	"net/http"
	"net/url"
)

// FindBook looks up a book by name, case-insensitively.
//
// Returns:
//   - *Book: The first book whose name matches
//   - error: ErrNotFound when no book matches; a terminal error otherwise
func (c *Client) FindBook(ctx context.Context, name string) (*Book, error) {
	var out listEnvelope[Book]
	err := c.call(ctx, callSpec{
		op: "find", level: "book", name: name,
		method: http.MethodGet, path: "/api/books",
		query: url.Values{"search": {name}},
		out:   &out,
	})
	if err != nil {
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

// CreateBook creates a new book.
//
// Returns:
//   - *Book: The created book with its store-assigned ID
//   - error: A terminal error on any non-success status
func (c *Client) CreateBook(ctx context.Context, name, description string) (*Book, error) {
	payload := map[string]string{"name": name, "description": description}
	var out Book
	err := c.call(ctx, callSpec{
		op: "create", level: "book", name: name,
		method: http.MethodPost, path: "/api/books",
		payload: payload,
		out:     &out,
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("created book", "name", name, "id", out.ID)
	return &out, nil
}
