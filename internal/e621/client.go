package e621

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/five82/snout/internal/apierr"
)

// Hosts served by the API.
const (
	HostE621 = "e621.net"
	HostE926 = "e926.net"
)

const (
	defaultVersion  = "0.1"
	requestTimeout  = 15 * time.Second
	defaultCacheTTL = 5 * time.Minute
	// DefaultLimit is the page size used when a query leaves Limit unset.
	DefaultLimit = 75
	// MaxLimit is the largest page the API will return.
	MaxLimit = 320
	// minAutocomplete is the shortest prefix the autocomplete endpoint accepts.
	minAutocomplete = 3
	maxErrorBody    = 64 << 10
)

// API is the set of remote operations the rest of the program depends on.
// It is implemented by *Client and can be faked in tests.
type API interface {
	SearchPosts(ctx context.Context, query PostQuery) ([]Post, error)
	SearchPostPage(ctx context.Context, query PostQuery) (PostPage, error)
	GetPost(ctx context.Context, id int64) (*Post, error)
	Favorite(ctx context.Context, id int64) (*Post, error)
	Unfavorite(ctx context.Context, id int64) error
	Vote(ctx context.Context, id int64, score int, noUnvote bool) (*VoteResult, error)

	SearchPools(ctx context.Context, query PoolQuery) ([]Pool, error)
	GetPool(ctx context.Context, id int64) (*Pool, error)

	SearchTags(ctx context.Context, query TagQuery) ([]Tag, error)
	AutocompleteTags(ctx context.Context, prefix string) ([]TagAutocomplete, error)

	GetUser(ctx context.Context, idOrName string) (*User, error)
	CurrentUser(ctx context.Context) (*User, error)

	ListComments(ctx context.Context, postID int64, page int) ([]Comment, error)
	CreateComment(ctx context.Context, postID int64, body string) (*Comment, error)

	ListDmails(ctx context.Context, query DmailQuery) ([]Dmail, error)
	GetDmail(ctx context.Context, id int64) (*Dmail, error)
	SendDmail(ctx context.Context, to, title, body string) (*Dmail, error)
	MarkDmailRead(ctx context.Context, id int64) error
	UnreadDmailCount(ctx context.Context) (int, error)

	ListPostSets(ctx context.Context, query PostSetQuery) ([]PostSet, error)
	AddToPostSet(ctx context.Context, setID int64, postIDs []int64) error
	RemoveFromPostSet(ctx context.Context, setID int64, postIDs []int64) error

	GetWikiPage(ctx context.Context, title string) (*WikiPage, error)
	SearchWikiPages(ctx context.Context, query string, page int) ([]WikiPage, error)

	ListNotes(ctx context.Context, postID int64) ([]Note, error)
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

// Options configures a Client.
type Options struct {
	// Host is e621.net, e926.net, or a full base URL.
	Host string
	// SafeMode forces e926.net when Host names e621.
	SafeMode bool
	Username string
	APIKey   string
	// Version is embedded in the User-Agent.
	Version string
	Timeout time.Duration
	// PerPage is the default page size, capped at MaxLimit.
	PerPage int
	// CacheSize enables the lookup cache when positive.
	CacheSize int
	CacheTTL  time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client talks to the e621 JSON API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	username  string
	apiKey    string
	perPage   int
	cache     *expirable.LRU[string, []byte]
}

// NewClient builds a Client from opts.
func NewClient(opts Options) (*Client, error) {
	base, err := parseBaseURL(opts.Host, opts.SafeMode)
	if err != nil {
		return nil, err
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = requestTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	c := &Client{
		baseURL:   base,
		http:      httpClient,
		userAgent: userAgent(opts.Version, opts.Username),
		username:  strings.TrimSpace(opts.Username),
		apiKey:    strings.TrimSpace(opts.APIKey),
		perPage:   clampLimit(opts.PerPage),
	}
	if opts.CacheSize > 0 {
		ttl := opts.CacheTTL
		if ttl <= 0 {
			ttl = defaultCacheTTL
		}
		c.cache = expirable.NewLRU[string, []byte](opts.CacheSize, nil, ttl)
	}
	return c, nil
}

// Host returns the host requests are sent to.
func (c *Client) Host() string {
	return c.baseURL.Host
}

// BaseURL returns the site root, used to build browser links.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Username returns the configured account name, if any.
func (c *Client) Username() string {
	return c.username
}

// HasCredentials reports whether write operations are possible.
func (c *Client) HasCredentials() bool {
	return c.username != "" && c.apiKey != ""
}

// PostURL returns the browser link for a post.
func (c *Client) PostURL(id int64) string {
	return c.baseURL.ResolveReference(&url.URL{Path: "/posts/" + strconv.FormatInt(id, 10)}).String()
}

// PurgeCache drops every cached lookup.
func (c *Client) PurgeCache() {
	if c.cache != nil {
		c.cache.Purge()
	}
}

func userAgent(version, username string) string {
	version = strings.TrimSpace(version)
	if version == "" {
		version = defaultVersion
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = "anonymous"
	}
	return fmt.Sprintf("snout/%s (by %s on e621)", version, username)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func (c *Client) limit(requested int) int {
	if requested <= 0 {
		return c.perPage
	}
	return clampLimit(requested)
}

func setPage(values url.Values, page int) {
	if page > 1 {
		values.Set("page", strconv.Itoa(page))
	}
}

// request describes one API call.
type request struct {
	method string
	path   string
	query  url.Values
	form   url.Values
	// cacheable marks idempotent lookups eligible for the response cache.
	cacheable bool
	// auth requires credentials before the call is attempted.
	auth bool
}

func (c *Client) get(ctx context.Context, path string, query url.Values, dest any) error {
	return c.do(ctx, request{method: http.MethodGet, path: path, query: query}, dest)
}

func (c *Client) do(ctx context.Context, r request, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if r.auth && !c.HasCredentials() {
		return authRequired(r.path)
	}
	rel := &url.URL{Path: r.path}
	if len(r.query) > 0 {
		rel.RawQuery = r.query.Encode()
	}
	reqURL := c.baseURL.ResolveReference(rel)
	key := reqURL.String()

	if r.cacheable && c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			return decode(r.path, cached, dest)
		}
	}

	body, err := c.send(ctx, r, reqURL)
	if err != nil && r.method == http.MethodGet && apierr.IsConnectionFailure(err) && ctx.Err() == nil {
		logutil.GetLogger(ctx).Debug("retrying request after connection failure",
			zap.String("path", r.path), zap.Error(err))
		body, err = c.send(ctx, r, reqURL)
	}
	if err != nil {
		return withPath(apierr.Classify(nil, nil, err), r.path)
	}
	if r.cacheable && c.cache != nil {
		c.cache.Add(key, body)
	}
	return decode(r.path, body, dest)
}

func (c *Client) send(ctx context.Context, r request, reqURL *url.URL) ([]byte, error) {
	var reader io.Reader
	if r.form != nil {
		reader = strings.NewReader(r.form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, r.method, reqURL.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if r.form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.HasCredentials() {
		req.SetBasicAuth(c.username, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		classified := apierr.Classify(resp, body, nil)
		logutil.GetLogger(ctx).Debug("api request failed",
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.Int("status", resp.StatusCode),
			zap.String("kind", classified.Kind.String()))
		return nil, withPath(classified, r.path)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

func withPath(err *apierr.Error, path string) *apierr.Error {
	if err != nil && err.Path == "" {
		err.Path = path
	}
	return err
}

func decode(path string, body []byte, dest any) error {
	if dest == nil || len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if raw, ok := dest.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], body...)
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return decodeError(path, err)
	}
	return nil
}

func parseBaseURL(host string, safeMode bool) (*url.URL, error) {
	trimmed := strings.TrimSpace(host)
	if trimmed == "" {
		trimmed = HostE621
	}
	if safeMode && strings.EqualFold(trimmed, HostE621) {
		trimmed = HostE926
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse host %q: %w", host, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse host %q: missing host", host)
	}
	if safeMode && strings.EqualFold(u.Host, HostE621) {
		u.Host = HostE926
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
