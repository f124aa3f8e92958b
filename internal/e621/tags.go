package e621

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Tag ordering accepted by /tags.json.
const (
	TagOrderCount = "count"
	TagOrderName  = "name"
	TagOrderDate  = "date"
)

// TagQuery configures /tags.json searches.
type TagQuery struct {
	Pattern string
	Order   string
	Page    int
	Limit   int
}

// SearchTags lists tags matching a name pattern such as "wolf*".
func (c *Client) SearchTags(ctx context.Context, query TagQuery) ([]Tag, error) {
	values := url.Values{}
	values.Set("limit", strconv.Itoa(c.limit(query.Limit)))
	if pattern := strings.TrimSpace(query.Pattern); pattern != "" {
		values.Set("search[name_matches]", strings.ReplaceAll(pattern, " ", "_"))
	}
	order := strings.TrimSpace(query.Order)
	if order == "" {
		order = TagOrderCount
	}
	values.Set("search[order]", order)
	values.Set("search[hide_empty]", "true")
	setPage(values, query.Page)
	return getList[Tag](ctx, c, request{method: http.MethodGet, path: "/tags.json", query: values}, "tags")
}

// AutocompleteTags suggests tags for a partially typed name. Prefixes shorter
// than three characters return an empty slice without a request.
func (c *Client) AutocompleteTags(ctx context.Context, prefix string) ([]TagAutocomplete, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	prefix = strings.TrimLeft(prefix, "-~")
	if len([]rune(prefix)) < minAutocomplete {
		return []TagAutocomplete{}, nil
	}
	values := url.Values{}
	values.Set("search[name_matches]", prefix)
	values.Set("expiry", "7")

	r := request{method: http.MethodGet, path: "/tags/autocomplete.json", query: values, cacheable: true}
	return getList[TagAutocomplete](ctx, c, r, "tags")
}
