package e621

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// PostSetQuery configures /post_sets.json listings.
type PostSetQuery struct {
	CreatorName string
	Page        int
	Limit       int
}

// ListPostSets lists post sets, optionally only those made by one user.
func (c *Client) ListPostSets(ctx context.Context, query PostSetQuery) ([]PostSet, error) {
	values := url.Values{}
	values.Set("limit", strconv.Itoa(c.limit(query.Limit)))
	if creator := strings.TrimSpace(query.CreatorName); creator != "" {
		values.Set("search[creator_name]", creator)
	}
	setPage(values, query.Page)
	return getList[PostSet](ctx, c, request{method: http.MethodGet, path: "/post_sets.json", query: values}, "post_sets")
}

// AddToPostSet appends posts to a set owned by the account.
func (c *Client) AddToPostSet(ctx context.Context, setID int64, postIDs []int64) error {
	return c.editPostSet(ctx, setID, "add_posts", postIDs)
}

// RemoveFromPostSet removes posts from a set owned by the account.
func (c *Client) RemoveFromPostSet(ctx context.Context, setID int64, postIDs []int64) error {
	return c.editPostSet(ctx, setID, "remove_posts", postIDs)
}

func (c *Client) editPostSet(ctx context.Context, setID int64, action string, postIDs []int64) error {
	path := "/post_sets/" + strconv.FormatInt(setID, 10) + "/" + action + ".json"
	if len(postIDs) == 0 {
		return invalidArgument(path, "no posts given")
	}
	form := url.Values{}
	for _, id := range postIDs {
		form.Add("post_ids[]", strconv.FormatInt(id, 10))
	}
	return c.do(ctx, request{method: http.MethodPost, path: path, form: form, auth: true}, nil)
}
