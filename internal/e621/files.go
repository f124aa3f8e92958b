package e621

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/five82/snout/internal/apierr"
)

// OpenFile starts a download of a post's media file. The caller closes the
// returned body. Unlike API calls it is bounded only by ctx, since files can
// be large.
func (c *Client) OpenFile(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, 0, apierr.New(apierr.Generic, rawURL, "invalid file url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	files := &http.Client{Transport: c.http.Transport, CheckRedirect: c.http.CheckRedirect, Jar: c.http.Jar}
	resp, err := files.Do(req)
	if err != nil {
		return nil, 0, withPath(apierr.Classify(nil, nil, err), u.Path)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		return nil, 0, withPath(apierr.Classify(resp, body, nil), u.Path)
	}
	return resp.Body, resp.ContentLength, nil
}
