// Package cse wraps the Google Custom Search JSON API for image
// queries.
package cse

import (
	"context"
	"fmt"
	"strings"

	customsearch "google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"menulens/internal/websearch"
)

// Client calls the Custom Search API with a fixed engine ID.
type Client struct {
	svc      *customsearch.Service
	engineID string
}

var _ websearch.SearchClient = (*Client)(nil)

// NewClient builds the API client. Returns (nil, nil) when credentials
// are absent so the caller can disable the search stage.
func NewClient(ctx context.Context, apiKey, engineID string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(engineID) == "" {
		return nil, nil
	}
	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("cse: build service: %w", err)
	}
	return &Client{svc: svc, engineID: engineID}, nil
}

// SearchImages runs one image query and maps the provider items into
// neutral results.
func (c *Client) SearchImages(ctx context.Context, query string, num int64) ([]websearch.Result, error) {
	if num < 1 {
		num = 1
	}
	if num > 10 {
		num = 10
	}

	resp, err := c.svc.Cse.List().
		Q(query).
		Cx(c.engineID).
		SearchType("image").
		Num(num).
		Safe("active").
		ImgType("photo").
		ImgSize("large").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("cse: search: %w", err)
	}

	out := make([]websearch.Result, 0, len(resp.Items))
	for _, item := range resp.Items {
		r := websearch.Result{
			Title:       item.Title,
			Snippet:     item.Snippet,
			Link:        item.Link,
			DisplayLink: item.DisplayLink,
			MIME:        item.Mime,
		}
		if item.Image != nil {
			r.ContextLink = item.Image.ContextLink
			r.ThumbnailLink = item.Image.ThumbnailLink
			r.Width = item.Image.Width
			r.Height = item.Image.Height
		}
		out = append(out, r)
	}
	return out, nil
}
