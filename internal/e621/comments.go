package e621

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ListComments lists comments on a post, oldest first.
func (c *Client) ListComments(ctx context.Context, postID int64, page int) ([]Comment, error) {
	values := url.Values{}
	values.Set("group_by", "comment")
	values.Set("search[post_id]", strconv.FormatInt(postID, 10))
	values.Set("search[order]", "id_asc")
	values.Set("limit", strconv.Itoa(c.perPage))
	setPage(values, page)
	comments, err := getList[Comment](ctx, c, request{method: http.MethodGet, path: "/comments.json", query: values}, "comments")
	if err != nil {
		return nil, err
	}
	out := comments[:0]
	for _, cm := range comments {
		if !cm.IsHidden {
			out = append(out, cm)
		}
	}
	return out, nil
}

// CreateComment posts a DText comment on a post.
func (c *Client) CreateComment(ctx context.Context, postID int64, body string) (*Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, invalidArgument("/comments.json", "comment body is empty")
	}
	form := url.Values{}
	form.Set("comment[post_id]", strconv.FormatInt(postID, 10))
	form.Set("comment[body]", body)
	var payload Comment
	if err := c.do(ctx, request{method: http.MethodPost, path: "/comments.json", form: form, auth: true}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ListNotes lists the active translation notes on a post.
func (c *Client) ListNotes(ctx context.Context, postID int64) ([]Note, error) {
	values := url.Values{}
	values.Set("search[post_id]", strconv.FormatInt(postID, 10))
	values.Set("search[is_active]", "true")
	values.Set("limit", strconv.Itoa(MaxLimit))
	return getList[Note](ctx, c, request{method: http.MethodGet, path: "/notes.json", query: values}, "notes")
}
