package e621

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// GetUser fetches a profile by numeric id or by name.
func (c *Client) GetUser(ctx context.Context, idOrName string) (*User, error) {
	key := strings.TrimSpace(idOrName)
	if key == "" {
		return nil, invalidArgument("/users.json", "user id or name required")
	}
	var payload User
	if err := c.get(ctx, "/users/"+url.PathEscape(key)+".json", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// CurrentUser fetches the logged-in account, including private fields.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	if !c.HasCredentials() {
		return nil, authRequired("/users.json")
	}
	var payload User
	r := request{method: http.MethodGet, path: "/users/" + url.PathEscape(c.username) + ".json", auth: true}
	if err := c.do(ctx, r, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Dmail folders.
const (
	FolderReceived = "received"
	FolderSent     = "sent"
)

// DmailQuery configures /dmails.json listings.
type DmailQuery struct {
	Folder string
	Page   int
	Limit  int
	// UnreadOnly restricts the listing to unread messages.
	UnreadOnly bool
}

// ListDmails lists messages in a folder, received by default.
func (c *Client) ListDmails(ctx context.Context, query DmailQuery) ([]Dmail, error) {
	values := url.Values{}
	folder := strings.TrimSpace(query.Folder)
	if folder == "" {
		folder = FolderReceived
	}
	values.Set("search[folder]", folder)
	values.Set("limit", strconv.Itoa(c.limit(query.Limit)))
	if query.UnreadOnly {
		values.Set("search[read]", "false")
	}
	setPage(values, query.Page)

	return getList[Dmail](ctx, c, request{method: http.MethodGet, path: "/dmails.json", query: values, auth: true}, "dmails")
}

// GetDmail fetches one message.
func (c *Client) GetDmail(ctx context.Context, id int64) (*Dmail, error) {
	var payload Dmail
	r := request{method: http.MethodGet, path: "/dmails/" + strconv.FormatInt(id, 10) + ".json", auth: true}
	if err := c.do(ctx, r, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// SendDmail sends a message to the named user.
func (c *Client) SendDmail(ctx context.Context, to, title, body string) (*Dmail, error) {
	to = strings.TrimSpace(to)
	if to == "" || strings.TrimSpace(title) == "" || strings.TrimSpace(body) == "" {
		return nil, invalidArgument("/dmails.json", "recipient, title and body are required")
	}
	form := url.Values{}
	form.Set("dmail[to_name]", to)
	form.Set("dmail[title]", title)
	form.Set("dmail[body]", body)
	var payload Dmail
	if err := c.do(ctx, request{method: http.MethodPost, path: "/dmails.json", form: form, auth: true}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// MarkDmailRead flags a message as read.
func (c *Client) MarkDmailRead(ctx context.Context, id int64) error {
	path := "/dmails/" + strconv.FormatInt(id, 10) + "/mark_as_read.json"
	return c.do(ctx, request{method: http.MethodPut, path: path, form: url.Values{}, auth: true}, nil)
}

// UnreadDmailCount counts unread received messages, up to one full page.
func (c *Client) UnreadDmailCount(ctx context.Context) (int, error) {
	dmails, err := c.ListDmails(ctx, DmailQuery{Folder: FolderReceived, UnreadOnly: true, Limit: MaxLimit})
	if err != nil {
		return 0, err
	}
	count := 0
	for _, d := range dmails {
		if !d.IsRead && !d.IsDeleted {
			count++
		}
	}
	return count, nil
}
