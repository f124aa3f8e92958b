package e621

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// GetWikiPage fetches a wiki page by title. Spaces become underscores.
func (c *Client) GetWikiPage(ctx context.Context, title string) (*WikiPage, error) {
	title = normalizeTitle(title)
	if title == "" {
		return nil, invalidArgument("/wiki_pages.json", "wiki title required")
	}
	var payload WikiPage
	r := request{method: http.MethodGet, path: "/wiki_pages/" + url.PathEscape(title) + ".json", cacheable: true}
	if err := c.do(ctx, r, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// SearchWikiPages lists wiki pages whose title matches query.
func (c *Client) SearchWikiPages(ctx context.Context, query string, page int) ([]WikiPage, error) {
	values := url.Values{}
	values.Set("limit", strconv.Itoa(c.perPage))
	if title := normalizeTitle(query); title != "" {
		values.Set("search[title]", wildcard(title))
	}
	values.Set("search[order]", "title")
	setPage(values, page)
	return getList[WikiPage](ctx, c, request{method: http.MethodGet, path: "/wiki_pages.json", query: values}, "wiki_pages")
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), "_"))
}
