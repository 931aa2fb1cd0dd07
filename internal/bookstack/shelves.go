package bookstack

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// FindShelf looks up a shelf by name, case-insensitively.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - name: Shelf name to match
//
// Returns:
//   - *Shelf: The first shelf whose name matches
//   - error: ErrNotFound when no shelf matches; a terminal error otherwise
func (c *Client) FindShelf(ctx context.Context, name string) (*Shelf, error) {
	var out listEnvelope[Shelf]
	err := c.call(ctx, callSpec{
		op: "find", level: "shelf", name: name,
		method: http.MethodGet, path: "/api/shelves",
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

// CreateShelf creates a new shelf.
//
// Returns:
//   - *Shelf: The created shelf with its store-assigned ID
//   - error: A terminal error on any non-success status
func (c *Client) CreateShelf(ctx context.Context, name, description string) (*Shelf, error) {
	payload := map[string]string{"name": name, "description": description}
	var out Shelf
	err := c.call(ctx, callSpec{
		op: "create", level: "shelf", name: name,
		method: http.MethodPost, path: "/api/shelves",
		payload: payload,
		out:     &out,
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("created shelf", "name", name, "id", out.ID)
	return &out, nil
}

// AssignBookToShelf attaches a book to a shelf. Already-attached books are
// accepted by the API without complaint, so the call is idempotent.
func (c *Client) AssignBookToShelf(ctx context.Context, shelfID, bookID int64) error {
	payload := map[string][]int64{"books": {bookID}}
	return c.call(ctx, callSpec{
		op: "assign", level: "shelf", name: strconv.FormatInt(shelfID, 10),
		method: http.MethodPut, path: fmt.Sprintf("/api/shelves/%d/books", shelfID),
		payload: payload,
	})
}
