package e621

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// PoolQuery configures /pools.json searches.
type PoolQuery struct {
	Name  string
	Page  int
	Limit int
}

// SearchPools lists pools whose name matches query.Name.
func (c *Client) SearchPools(ctx context.Context, query PoolQuery) ([]Pool, error) {
	values := url.Values{}
	values.Set("limit", strconv.Itoa(c.limit(query.Limit)))
	if name := strings.TrimSpace(query.Name); name != "" {
		values.Set("search[name_matches]", wildcard(name))
	}
	setPage(values, query.Page)
	return getList[Pool](ctx, c, request{method: http.MethodGet, path: "/pools.json", query: values}, "pools")
}

// GetPool fetches a pool and its ordered post ids.
func (c *Client) GetPool(ctx context.Context, id int64) (*Pool, error) {
	var payload Pool
	r := request{method: http.MethodGet, path: "/pools/" + strconv.FormatInt(id, 10) + ".json", cacheable: true}
	if err := c.do(ctx, r, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// wildcard wraps a plain term so the API matches it anywhere in a name.
func wildcard(term string) string {
	term = strings.ReplaceAll(strings.TrimSpace(term), " ", "_")
	if strings.Contains(term, "*") {
		return term
	}
	return "*" + term + "*"
}
