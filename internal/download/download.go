// Package download saves post media files to disk.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/five82/snout/internal/e621"
)

// DefaultTemplate names files after the post id.
const DefaultTemplate = "{id}.{ext}"

// ErrNoFile is returned for posts whose file URL the API withheld, which
// happens for deleted posts and for anonymous requests of some content.
var ErrNoFile = errors.New("post has no downloadable file")

// Opener starts the transfer of a media file.
type Opener interface {
	OpenFile(ctx context.Context, rawURL string) (io.ReadCloser, int64, error)
}

// Options controls where and how a file is saved.
type Options struct {
	Dir string
	// Template builds the file name from post fields, see FileName.
	Template  string
	Overwrite bool
}

// Result describes a finished download.
type Result struct {
	Path    string
	Bytes   int64
	Skipped bool
}

var tokenRe = regexp.MustCompile(`\{([a-z0-9_]+)\}`)

// FileName expands tmpl for post. Tokens: {id} {md5} {ext} {rating}
// {artist} {score} {width} {height}. Path separators in values are replaced
// so the result is always a single file name.
func FileName(tmpl string, post e621.Post) (string, error) {
	if strings.TrimSpace(tmpl) == "" {
		tmpl = DefaultTemplate
	}
	artist := "unknown_artist"
	if len(post.Tags.Artist) > 0 {
		artist = strings.Join(post.Tags.Artist, "+")
	}
	values := map[string]string{
		"id":     strconv.FormatInt(post.ID, 10),
		"md5":    post.File.MD5,
		"ext":    strings.ToLower(post.File.Ext),
		"rating": post.Rating,
		"artist": artist,
		"score":  strconv.Itoa(post.Score.Total),
		"width":  strconv.Itoa(post.File.Width),
		"height": strconv.Itoa(post.File.Height),
	}
	var unknown []string
	name := tokenRe.ReplaceAllStringFunc(tmpl, func(tok string) string {
		key := tok[1 : len(tok)-1]
		v, ok := values[key]
		if !ok {
			unknown = append(unknown, tok)
			return tok
		}
		return v
	})
	if len(unknown) > 0 {
		return "", fmt.Errorf("unknown template token %s", strings.Join(unknown, ", "))
	}
	name = sanitize(name)
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("template %q produced an empty file name", tmpl)
	}
	return name, nil
}

func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r < 0x20:
			return '_'
		}
		return r
	}, name)
	return strings.TrimSpace(name)
}

// Save downloads post's original file into opts.Dir. An existing file is
// kept unless opts.Overwrite is set.
func Save(ctx context.Context, opener Opener, post e621.Post, opts Options) (Result, error) {
	if post.File.URL == "" {
		return Result{}, ErrNoFile
	}
	name, err := FileName(opts.Template, post)
	if err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create download dir: %w", err)
	}
	target := filepath.Join(opts.Dir, name)
	if !opts.Overwrite {
		if _, err := os.Stat(target); err == nil {
			return Result{Path: target, Skipped: true}, nil
		}
	}

	body, _, err := opener.OpenFile(ctx, post.File.URL)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = body.Close() }()

	tmp, err := os.CreateTemp(opts.Dir, ".snout-download-*")
	if err != nil {
		return Result{}, err
	}
	written, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return Result{}, fmt.Errorf("download post %d: %w", post.ID, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return Result{}, err
	}

	logutil.GetLogger(ctx).Info("post downloaded",
		zap.Int64("post", post.ID),
		zap.String("path", target),
		zap.Int64("bytes", written))
	return Result{Path: target, Bytes: written}, nil
}
