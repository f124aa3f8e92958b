package e621

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// PostQuery configures /posts.json searches.
type PostQuery struct {
	Tags  string
	Page  int
	Limit int
}

// PostPage is one page of search results.
type PostPage struct {
	Posts []Post
	// Returned counts the rows the API sent, including dropped records.
	Returned int
}

// SearchPosts returns one page of posts matching the tag query.
func (c *Client) SearchPosts(ctx context.Context, query PostQuery) ([]Post, error) {
	page, err := c.SearchPostPage(ctx, query)
	if err != nil {
		return nil, err
	}
	return page.Posts, nil
}

// SearchPostPage is SearchPosts with the unfiltered row count, for callers
// that page until the API runs dry.
func (c *Client) SearchPostPage(ctx context.Context, query PostQuery) (PostPage, error) {
	values := url.Values{}
	values.Set("limit", strconv.Itoa(c.limit(query.Limit)))
	if tags := strings.Join(strings.Fields(query.Tags), " "); tags != "" {
		values.Set("tags", tags)
	}
	setPage(values, query.Page)

	posts, returned, err := fetchList[Post](ctx, c, request{method: http.MethodGet, path: "/posts.json", query: values}, "posts")
	if err != nil {
		return PostPage{}, err
	}
	return PostPage{Posts: posts, Returned: returned}, nil
}

// GetPost fetches a single post.
func (c *Client) GetPost(ctx context.Context, id int64) (*Post, error) {
	var payload struct {
		Post Post `json:"post"`
	}
	r := request{method: http.MethodGet, path: "/posts/" + strconv.FormatInt(id, 10) + ".json", cacheable: true}
	if err := c.do(ctx, r, &payload); err != nil {
		return nil, err
	}
	return &payload.Post, nil
}

// Favorite adds the post to the account's favorites.
func (c *Client) Favorite(ctx context.Context, id int64) (*Post, error) {
	form := url.Values{}
	form.Set("post_id", strconv.FormatInt(id, 10))
	var payload struct {
		Post Post `json:"post"`
	}
	r := request{method: http.MethodPost, path: "/favorites.json", form: form, auth: true}
	if err := c.do(ctx, r, &payload); err != nil {
		return nil, err
	}
	c.forget("/posts/" + strconv.FormatInt(id, 10) + ".json")
	payload.Post.IsFavorited = true
	return &payload.Post, nil
}

// Unfavorite removes the post from the account's favorites.
func (c *Client) Unfavorite(ctx context.Context, id int64) error {
	r := request{method: http.MethodDelete, path: "/favorites/" + strconv.FormatInt(id, 10) + ".json", auth: true}
	if err := c.do(ctx, r, nil); err != nil {
		return err
	}
	c.forget("/posts/" + strconv.FormatInt(id, 10) + ".json")
	return nil
}

// Vote casts an up (1) or down (-1) vote. With noUnvote set, repeating a
// vote keeps it instead of toggling it off.
func (c *Client) Vote(ctx context.Context, id int64, score int, noUnvote bool) (*VoteResult, error) {
	switch {
	case score > 0:
		score = 1
	case score < 0:
		score = -1
	default:
		return nil, invalidArgument("/posts/votes.json", "vote score must be 1 or -1")
	}
	path := "/posts/" + strconv.FormatInt(id, 10) + "/votes.json"
	form := url.Values{}
	form.Set("score", strconv.Itoa(score))
	if noUnvote {
		form.Set("no_unvote", "true")
	}
	var payload VoteResult
	if err := c.do(ctx, request{method: http.MethodPost, path: path, form: form, auth: true}, &payload); err != nil {
		return nil, err
	}
	c.forget("/posts/" + strconv.FormatInt(id, 10) + ".json")
	return &payload, nil
}
