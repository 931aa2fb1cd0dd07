package bookstack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// FindPage looks up a page by name within a chapter, case-insensitively.
//
// An empty chapter is a normal miss: a 404 on the child listing is folded
// into ErrNotFound.
//
// Returns:
//   - *Page: The first page whose name matches
//   - error: ErrNotFound when no page matches; a terminal error otherwise
func (c *Client) FindPage(ctx context.Context, chapterID int64, name string) (*Page, error) {
	var out listEnvelope[Page]
	err := c.call(ctx, callSpec{
		op: "find", level: "page", name: name,
		method: http.MethodGet, path: fmt.Sprintf("/api/chapters/%d/pages", chapterID),
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

// CreatePage creates a new markdown page within a chapter.
//
// Returns:
//   - *Page: The created page with its store-assigned ID
//   - error: A terminal error on any non-success status
func (c *Client) CreatePage(ctx context.Context, chapterID int64, name, markdown string) (*Page, error) {
	payload := map[string]string{"title": name, "markdown": markdown}
	var out Page
	err := c.call(ctx, callSpec{
		op: "create", level: "page", name: name,
		method: http.MethodPost, path: fmt.Sprintf("/api/chapters/%d/pages", chapterID),
		payload: payload,
		out:     &out,
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("created page", "name", name, "id", out.ID, "chapter_id", chapterID)
	return &out, nil
}

// UpdatePage replaces an existing page's title and markdown content.
//
// The page ID must have come from a find or create in the same run; names
// are never an acceptable update key.
//
// Returns:
//   - *Page: The updated page
//   - error: A terminal error on any non-success status
func (c *Client) UpdatePage(ctx context.Context, pageID int64, name, markdown string) (*Page, error) {
	payload := map[string]string{"title": name, "markdown": markdown}
	var out Page
	err := c.call(ctx, callSpec{
		op: "update", level: "page", name: name,
		method: http.MethodPut, path: fmt.Sprintf("/api/pages/%d", pageID),
		payload: payload,
		out:     &out,
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("updated page", "name", name, "id", pageID)
	return &out, nil
}
