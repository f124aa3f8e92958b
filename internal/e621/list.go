package e621

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/five82/snout/internal/apierr"
)

// validator is implemented by records that can arrive incomplete.
type validator interface {
	valid() bool
}

func getList[T any](ctx context.Context, c *Client, r request, key string) ([]T, error) {
	out, _, err := fetchList[T](ctx, c, r, key)
	return out, err
}

// fetchList decodes a listing and drops invalid records. returned is the
// row count before filtering, which tells a full page from the last one.
func fetchList[T any](ctx context.Context, c *Client, r request, key string) (out []T, returned int, err error) {
	var raw json.RawMessage
	if err := c.do(ctx, r, &raw); err != nil {
		return nil, 0, err
	}
	out, err = decodeList[T](raw, key)
	if err != nil {
		return nil, 0, decodeError(r.path, err)
	}
	return keepValid(out), len(out), nil
}

func keepValid[T any](items []T) []T {
	out := items[:0]
	for _, item := range items {
		if v, ok := any(item).(validator); ok && !v.valid() {
			continue
		}
		out = append(out, item)
	}
	return out
}

func decodeError(path string, err error) error {
	return &apierr.Error{Kind: apierr.Generic, Path: path, Err: fmt.Errorf("decode response: %w", err)}
}

func invalidArgument(path, reason string) error {
	return &apierr.Error{Kind: apierr.Generic, Path: path, Reason: reason}
}

func authRequired(path string) error {
	return apierr.New(apierr.Auth, path, "login required")
}

// forget drops a cached lookup after a write changed it.
func (c *Client) forget(path string) {
	if c.cache == nil {
		return
	}
	c.cache.Remove(c.baseURL.ResolveReference(&url.URL{Path: path}).String())
}
